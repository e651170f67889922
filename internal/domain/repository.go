package domain

// ProductRepository описывает требования к хранилищу товаров.
// Чтения видят только активные товары.
type ProductRepository interface {
	// GetAll возвращает активные товары в порядке хранилища.
	GetAll() ([]Product, error)
	// GetByID возвращает активный товар или ErrProductNotFound.
	GetByID(id int64) (Product, error)
	// GetByCategory ищет по точному совпадению категории без учёта регистра.
	GetByCategory(category string) ([]Product, error)
	// Search ищет подстроку в имени или описании с учётом регистра.
	Search(term string) ([]Product, error)
	// Create присваивает ID, проставляет даты и IsActive=true.
	Create(product Product) (int64, error)
	// Update перезаписывает изменяемые поля товара в любом состоянии.
	Update(product Product) (bool, error)
	// Deactivate мягко удаляет товар. false, если товара нет или он уже неактивен.
	Deactivate(id int64) (bool, error)
	// UpdateStock перезаписывает остаток без проверки границ.
	UpdateStock(id int64, quantity int) (bool, error)
}

// CustomerRepository описывает требования к хранилищу покупателей.
type CustomerRepository interface {
	GetAll() ([]Customer, error)
	// GetByID возвращает активного покупателя или ErrCustomerNotFound.
	GetByID(id int64) (Customer, error)
	// GetByEmail возвращает первого активного покупателя с таким email (без учёта регистра).
	GetByEmail(email string) (Customer, error)
	Create(customer Customer) (int64, error)
	Update(customer Customer) (bool, error)
	// Remove физически удаляет запись из хранилища.
	Remove(id int64) (bool, error)
	// Deactivate помечает покупателя неактивным, запись остаётся в хранилище.
	Deactivate(id int64) (bool, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	GetAll() ([]Order, error)
	// GetByID возвращает заказ с позициями или ErrOrderNotFound.
	GetByID(id int64) (Order, error)
	// GetByCustomerID возвращает заказы покупателя, новые первыми.
	GetByCustomerID(customerID int64) ([]Order, error)
	// GetByStatus ищет по точному совпадению статуса без учёта регистра, новые первыми.
	GetByStatus(status string) ([]Order, error)
	// Create сохраняет заказ и позиции. Пустой статус заменяется на Pending.
	Create(order Order) (int64, error)
	// Update перезаписывает статус, сумму и адреса. Позиции не меняются.
	Update(order Order) (bool, error)
	// UpdateStatus перезаписывает статус без проверки перехода.
	UpdateStatus(id int64, status string) (bool, error)
	// Cancel проставляет статус Cancelled независимо от текущего.
	Cancel(id int64) (bool, error)
}

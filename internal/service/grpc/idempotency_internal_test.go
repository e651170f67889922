package grpcsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

type stubIdempotencyRepository struct {
	createFn     func(key, hash string) (domain.IdempotencyRecord, error)
	markDoneFn   func(key string, body []byte, code int) error
	markFailedFn func(key string, body []byte, code int) error
}

func (s *stubIdempotencyRepository) CreateProcessing(key, hash string, _ time.Time) (domain.IdempotencyRecord, error) {
	if s.createFn != nil {
		return s.createFn(key, hash)
	}
	return domain.IdempotencyRecord{Key: key, RequestHash: hash, Status: domain.IdempotencyStatusProcessing}, nil
}

func (s *stubIdempotencyRepository) Get(string) (domain.IdempotencyRecord, error) {
	return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyNotFound
}

func (s *stubIdempotencyRepository) MarkDone(key string, body []byte, code int) error {
	if s.markDoneFn != nil {
		return s.markDoneFn(key, body, code)
	}
	return nil
}

func (s *stubIdempotencyRepository) MarkFailed(key string, body []byte, code int) error {
	if s.markFailedFn != nil {
		return s.markFailedFn(key, body, code)
	}
	return nil
}

func (s *stubIdempotencyRepository) DeleteExpired(time.Time, int) (int, error) {
	return 0, nil
}

func mustStatusCode(t *testing.T, err error, expected codes.Code) {
	t.Helper()
	if status.Code(err) != expected {
		t.Fatalf("expected code %s, got %v", expected, err)
	}
}

func incomingKey(key string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(IdempotencyKeyHeader, key))
}

func TestWithIdempotency_StoresSuccess(t *testing.T) {
	logger, _ := test.NewNullLogger()
	var stored []byte
	idem := &idempotency{
		repo: &stubIdempotencyRepository{markDoneFn: func(_ string, body []byte, code int) error {
			stored = append([]byte(nil), body...)
			require.Equal(t, int(codes.OK), code)
			return nil
		}},
		logger: logger.WithField("test", "idempotency"),
	}

	resp, err := withIdempotency(incomingKey("k1"), idem, "svc/Create", &IDRequest{ID: 1}, func() (*CreateResponse, error) {
		return &CreateResponse{ID: 42}, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), resp.ID)
	require.JSONEq(t, `{"id":42}`, string(stored))
}

func TestWithIdempotency_ReplaysByRecordStatus(t *testing.T) {
	logger, _ := test.NewNullLogger()
	newIdem := func(record domain.IdempotencyRecord, createErr error) *idempotency {
		return &idempotency{
			repo: &stubIdempotencyRepository{createFn: func(string, string) (domain.IdempotencyRecord, error) {
				return record, createErr
			}},
			logger: logger.WithField("test", "replay"),
		}
	}
	handler := func() (*CreateResponse, error) {
		t.Fatal("handler must not run on replay")
		return nil, nil
	}

	resp, err := withIdempotency(incomingKey("k"), newIdem(domain.IdempotencyRecord{
		Status:       domain.IdempotencyStatusDone,
		ResponseBody: []byte(`{"id":7}`),
	}, domain.ErrIdempotencyKeyAlreadyExists), "m", &Empty{}, handler)
	require.NoError(t, err)
	require.Equal(t, int64(7), resp.ID)

	_, err = withIdempotency(incomingKey("k"), newIdem(domain.IdempotencyRecord{
		Status: domain.IdempotencyStatusProcessing,
	}, domain.ErrIdempotencyKeyAlreadyExists), "m", &Empty{}, handler)
	mustStatusCode(t, err, codes.Aborted)

	_, err = withIdempotency(incomingKey("k"), newIdem(domain.IdempotencyRecord{
		Status: domain.IdempotencyStatusDone,
	}, domain.ErrIdempotencyKeyAlreadyExists), "m", &Empty{}, handler)
	mustStatusCode(t, err, codes.Internal)

	_, err = withIdempotency(incomingKey("k"), newIdem(domain.IdempotencyRecord{}, domain.ErrIdempotencyHashMismatch), "m", &Empty{}, handler)
	mustStatusCode(t, err, codes.AlreadyExists)

	_, err = withIdempotency(incomingKey("k"), newIdem(domain.IdempotencyRecord{}, errors.New("db down")), "m", &Empty{}, handler)
	mustStatusCode(t, err, codes.Internal)
}

func TestWithIdempotency_SkipsWithoutKey(t *testing.T) {
	idem := &idempotency{
		repo: &stubIdempotencyRepository{createFn: func(string, string) (domain.IdempotencyRecord, error) {
			t.Fatal("repository must not be touched without a key")
			return domain.IdempotencyRecord{}, nil
		}},
	}

	resp, err := withIdempotency(context.Background(), idem, "m", &Empty{}, func() (*CreateResponse, error) {
		return &CreateResponse{ID: 1}, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.ID)

	resp, err = withIdempotency[CreateResponse](incomingKey("k"), nil, "m", &Empty{}, func() (*CreateResponse, error) {
		return &CreateResponse{ID: 2}, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), resp.ID)
}

func TestCacheFailure_StoresStatusPayload(t *testing.T) {
	logger, hook := test.NewNullLogger()
	var gotKey string
	var gotPayload []byte
	var gotStatus int

	idem := &idempotency{
		repo: &stubIdempotencyRepository{markFailedFn: func(key string, payload []byte, statusCode int) error {
			gotKey = key
			gotPayload = append([]byte(nil), payload...)
			gotStatus = statusCode
			return nil
		}},
		logger: logger.WithField("test", "failure"),
	}

	idem.cacheFailure("idem-1", status.Error(codes.FailedPrecondition, "failed before commit"))
	if gotKey != "idem-1" {
		t.Fatalf("expected key idem-1, got %s", gotKey)
	}
	if gotStatus != int(codes.FailedPrecondition) {
		t.Fatalf("expected code %d, got %d", int(codes.FailedPrecondition), gotStatus)
	}
	require.JSONEq(t, `{"code":9,"message":"failed before commit"}`, string(gotPayload))

	idem.repo = &stubIdempotencyRepository{markFailedFn: func(string, []byte, int) error { return errors.New("store failed") }}
	idem.cacheFailure("idem-2", errors.New("plain"))
	require.NotNil(t, hook.LastEntry())
	require.Equal(t, "failed to store idempotency failure response", hook.LastEntry().Message)
}

func TestDecodeIdempotencyFailure_Branches(t *testing.T) {
	err := decodeIdempotencyFailure(domain.IdempotencyRecord{
		ResponseBody: []byte(`{"code":3,"message":"payload mismatch"}`),
	})
	mustStatusCode(t, err, codes.InvalidArgument)
	if status.Convert(err).Message() != "payload mismatch" {
		t.Fatalf("unexpected message: %s", status.Convert(err).Message())
	}

	err = decodeIdempotencyFailure(domain.IdempotencyRecord{
		ResponseBody: []byte(`{"code":0,"message":""}`),
	})
	mustStatusCode(t, err, codes.Internal)

	err = decodeIdempotencyFailure(domain.IdempotencyRecord{
		ResponseBody: []byte("broken-json"),
		StatusCode:   int(codes.Aborted),
	})
	mustStatusCode(t, err, codes.Aborted)

	err = decodeIdempotencyFailure(domain.IdempotencyRecord{
		ResponseBody: []byte("broken-json"),
		StatusCode:   int(codes.OK),
	})
	mustStatusCode(t, err, codes.Internal)
}

func TestBuildIdempotencyRequestHash(t *testing.T) {
	first, err := buildIdempotencyRequestHash("svc/Create", &IDRequest{ID: 1})
	require.NoError(t, err)
	again, err := buildIdempotencyRequestHash("svc/Create", &IDRequest{ID: 1})
	require.NoError(t, err)
	other, err := buildIdempotencyRequestHash("svc/Other", &IDRequest{ID: 1})
	require.NoError(t, err)

	require.Equal(t, first, again)
	require.NotEqual(t, first, other)
	require.Len(t, first, 64)

	_, err = buildIdempotencyRequestHash("svc/Create", nil)
	require.Error(t, err)
}

func TestReadIdempotencyKey(t *testing.T) {
	require.Empty(t, readIdempotencyKey(context.Background()))
	require.Empty(t, readIdempotencyKey(incomingKey("   ")))
	require.Equal(t, "abc", readIdempotencyKey(incomingKey(" abc ")))
}

func TestToStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	entry := logger.WithField("test", "status")

	err := toStatus(entry, "CreateProduct", domain.NewValidationError("validation failed", map[string]string{"name": "field is required"}), msgCreateProduct)
	mustStatusCode(t, err, codes.InvalidArgument)
	require.Equal(t, "validation failed: name: field is required", status.Convert(err).Message())
	require.Empty(t, hook.AllEntries())

	err = toStatus(entry, "CreateProduct", errors.New("connection reset"), msgCreateProduct)
	mustStatusCode(t, err, codes.Internal)
	require.Equal(t, msgCreateProduct, status.Convert(err).Message())
	require.Len(t, hook.AllEntries(), 1)
	require.Equal(t, "CreateProduct", hook.LastEntry().Data["operation"])
}

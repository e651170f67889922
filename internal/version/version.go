// Package version хранит сведения о сборке, проставляемые через -ldflags:
//
//	-X github.com/vladislavdragonenkov/ecomstore/internal/version.version=v1.2.3
//	-X github.com/vladislavdragonenkov/ecomstore/internal/version.commit=$(git rev-parse --short HEAD)
package version

import (
	"fmt"
	"runtime"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GetVersion возвращает версию сборки (попадает в /healthz).
func GetVersion() string { return version }

// Fields - поля сборки для стартовой записи лога.
func Fields() map[string]any {
	return map[string]any{
		"version":    version,
		"commit":     commit,
		"build_date": date,
		"go":         runtime.Version(),
	}
}

func String() string {
	return fmt.Sprintf("ecomstore %s (commit %s, built %s, %s)", version, commit, date, runtime.Version())
}

package nam

import (
	"log/slog"
	"sync/atomic"

	"github.com/samcharles93/namcore/internal/logger"
)

var pkgLogger atomic.Pointer[logger.Logger]

func init() {
	SetLogger(nil)
}

// SetLogger routes load diagnostics to l. A nil logger discards them, which
// is the default.
func SetLogger(l *slog.Logger) {
	lg := logger.FromSlog(l)
	pkgLogger.Store(&lg)
}

func diag() logger.Logger {
	return *pkgLogger.Load()
}

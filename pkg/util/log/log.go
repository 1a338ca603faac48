package log

import (
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	dslog "github.com/grafana/dskit/log"
)

// Logger is a shared go-kit logger. It is a nop until InitLogger runs so that
// tests and the CLI can use packages that log without any setup.
var Logger = kitlog.NewNopLogger()

// InitLogger initialises the global go-kit logger and returns it.
func InitLogger(logFormat string, logLevel dslog.Level) kitlog.Logger {
	writer := kitlog.NewSyncWriter(os.Stderr)
	logger := dslog.NewGoKitWithWriter(logFormat, writer)

	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC, "caller", kitlog.Caller(5))

	// The level filter goes last so filtered lines skip the decoration above.
	logger = level.NewFilter(logger, logLevel.Option)

	Logger = logger
	return logger
}

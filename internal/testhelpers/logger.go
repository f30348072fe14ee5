package testhelpers

import (
	"os"

	"github.com/jonesrussell/index-checker/internal/logger"
)

// NewTestLogger returns a debug console logger when TEST_LOG is set and a
// no-op logger otherwise.
func NewTestLogger() logger.Logger {
	if os.Getenv("TEST_LOG") == "" {
		return logger.NewNop()
	}

	log, err := logger.New(logger.Config{
		Level:       "debug",
		Format:      logger.FormatConsole,
		Development: true,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return logger.NewNop()
	}
	return log
}

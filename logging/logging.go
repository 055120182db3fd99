package logging

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	logger  *log.Logger
	mu      sync.Mutex
	debugOn bool
)

func init() {
	logger = log.New(os.Stderr, "twenty-twenty: ", log.LstdFlags)
	debugOn = os.Getenv("TWENTY_TWENTY_DEBUG") != ""
}

// SetOutput redirects all log output, mainly so tests can capture it.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// SetDebug toggles debug logging for the process. Debug logging is also
// enabled when the TWENTY_TWENTY_DEBUG environment variable is set.
func SetDebug(on bool) {
	mu.Lock()
	defer mu.Unlock()
	debugOn = on
}

// Warnf logs a warning. Warnings are always emitted; they are used for
// conditions the caller should see but that must not fail the assertion,
// such as an unrecognized run mode.
func Warnf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	logger.Printf("WARN: "+format, args...)
}

// Debugf logs a message if debug logging is enabled
func Debugf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if debugOn {
		logger.Printf("DEBUG: "+format, args...)
	}
}

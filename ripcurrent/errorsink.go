package ripcurrent

import (
	"sync"

	"go.uber.org/zap"
)

// ErrorHandler receives a detailed diagnostic description for an
// InconsistentTimestamp rejection or a leaked-block report.
type ErrorHandler func(detail string)

var (
	sinkMu sync.Mutex
	logger = zap.NewNop()
	sink   ErrorHandler = func(detail string) { logger.Fatal("ripcurrent error", zap.String("detail", detail)) }
)

// SetLogger installs the *zap.Logger used by the default error sink. The
// sink logs through Fatal, which terminates the process after logging,
// matching the original design's "print to stderr and terminate" default.
// zap's Fatal exits even on zap.NewNop() (the package default), which only
// suppresses the output, so tests that exercise a rejection path install
// their own sink with SetErrorSink.
func SetLogger(l *zap.Logger) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	logger = l
}

// SetErrorSink installs handler as the process-wide error sink and returns a
// func that restores the previous one, so tests can assert on diagnostics
// without aborting the test binary.
func SetErrorSink(handler ErrorHandler) (restore func()) {
	sinkMu.Lock()
	previous := sink
	sink = handler
	sinkMu.Unlock()

	return func() {
		sinkMu.Lock()
		sink = previous
		sinkMu.Unlock()
	}
}

func handleError(detail string) {
	sinkMu.Lock()
	h := sink
	sinkMu.Unlock()
	h(detail)
}

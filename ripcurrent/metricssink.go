package ripcurrent

import (
	"sync"

	"github.com/currentframework/bricks/mmpq"
)

// Recorder receives RipCurrent/MMPQ activity notifications. *metrics.Metrics
// satisfies this directly, so main.go can wire one shared instance across
// the HTTP transport core and every RipCurrent pipeline with SetMetrics.
type Recorder interface {
	mmpq.Counters
	RecordRipCurrentRun()
}

var (
	recorderMu sync.Mutex
	recorder   Recorder
)

// SetMetrics installs a process-wide Recorder that every Block.Run() call
// and internal mmpq.Queue edge (built by Pipe) reports activity to. Passing
// nil disables recording, which is also the default.
func SetMetrics(r Recorder) {
	recorderMu.Lock()
	recorder = r
	recorderMu.Unlock()
}

func currentRecorder() Recorder {
	recorderMu.Lock()
	defer recorderMu.Unlock()
	return recorder
}

package progress

import (
	"sync"

	"go.uber.org/zap"
)

// Reporter narrates a run to a human. Implementations decide how text is
// displayed; callers only decide when and with what text.
type Reporter interface {
	// Report replaces the current status line.
	Report(msg string)
	// Succeed records a completed step.
	Succeed(msg string)
	// Fail records a failed or empty step.
	Fail(msg string)
}

// Nop discards all narration.
type Nop struct{}

// Report implements Reporter.
func (Nop) Report(string) {}

// Succeed implements Reporter.
func (Nop) Succeed(string) {}

// Fail implements Reporter.
func (Nop) Fail(string) {}

// Kind labels a recorded narration call.
type Kind string

// Narration kinds captured by Recorder.
const (
	KindReport  Kind = "report"
	KindSucceed Kind = "succeed"
	KindFail    Kind = "fail"
)

// Entry is one recorded narration call.
type Entry struct {
	Kind    Kind
	Message string
}

// Recorder keeps every narration call in order. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Report implements Reporter.
func (r *Recorder) Report(msg string) { r.add(KindReport, msg) }

// Succeed implements Reporter.
func (r *Recorder) Succeed(msg string) { r.add(KindSucceed, msg) }

// Fail implements Reporter.
func (r *Recorder) Fail(msg string) { r.add(KindFail, msg) }

func (r *Recorder) add(kind Kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Kind: kind, Message: msg})
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Messages returns the recorded messages of one kind.
func (r *Recorder) Messages(kind Kind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		if e.Kind == kind {
			out = append(out, e.Message)
		}
	}
	return out
}

// LogReporter writes narration as structured log lines. Status updates are
// logged at debug level so non-interactive runs stay quiet by default.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter wires a Zap logger to the Reporter interface.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger}
}

// Report implements Reporter.
func (l *LogReporter) Report(msg string) {
	l.logger.Debug(msg, zap.String("kind", string(KindReport)))
}

// Succeed implements Reporter.
func (l *LogReporter) Succeed(msg string) {
	l.logger.Info(msg, zap.String("kind", string(KindSucceed)))
}

// Fail implements Reporter.
func (l *LogReporter) Fail(msg string) {
	l.logger.Warn(msg, zap.String("kind", string(KindFail)))
}

// Multi fans narration out to several reporters in order.
type Multi []Reporter

// Report implements Reporter.
func (m Multi) Report(msg string) {
	for _, r := range m {
		r.Report(msg)
	}
}

// Succeed implements Reporter.
func (m Multi) Succeed(msg string) {
	for _, r := range m {
		r.Succeed(msg)
	}
}

// Fail implements Reporter.
func (m Multi) Fail(msg string) {
	for _, r := range m {
		r.Fail(msg)
	}
}

// Package metrics records timer engine and link activity.
package metrics

// Persistence results.
const (
	ResultOK    = "ok"
	ResultFault = "fault"
)

// Recorder is what the engine and link loops report into.
type Recorder interface {
	IncTick()
	IncCommand(kind string)
	IncPersist(result string)
	IncLinkMessage(direction string)
	IncLinkFault(op string)
	SetRunning(running bool)
	SetTotalSeconds(total int64)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) IncTick() {}
func (NopRecorder) IncCommand(string) {}
func (NopRecorder) IncPersist(string) {}
func (NopRecorder) IncLinkMessage(string) {}
func (NopRecorder) IncLinkFault(string) {}
func (NopRecorder) SetRunning(bool) {}
func (NopRecorder) SetTotalSeconds(int64) {}

var _ Recorder = NopRecorder{}

// Package progress implements the advisory progress protocol of spec §6:
// a single callback invoked as build phases advance. It never gates the
// build — callers cannot cancel by returning a value, because there is no
// return value.
package progress

// FinishStatus marks whether a reported phase is still running or done.
type FinishStatus int

const (
	InProgress FinishStatus = iota
	Finished
)

// Callback matches spec §6's progress(current, total, status, finish_status).
// current == total signals the end of a phase. Counts may re-enter the same
// status (e.g. multiple calls during BSP splitting).
type Callback func(current, total int, status string, finish FinishStatus)

// Nop discards every call. Used when the CLI runs with --silent.
func Nop(current, total int, status string, finish FinishStatus) {}

// Reporter wraps a Callback with a status label so call sites don't repeat it.
type Reporter struct {
	cb     Callback
	Status string
}

func New(cb Callback, status string) *Reporter {
	if cb == nil {
		cb = Nop
	}
	return &Reporter{cb: cb, Status: status}
}

// Report emits one progress tick. Never raises: a panicking callback would
// abort the whole build, which the protocol's contract forbids, so the
// reporter recovers and drops the panic.
func (r *Reporter) Report(current, total int) {
	defer func() { _ = recover() }()
	r.cb(current, total, r.Status, finishOf(current, total))
}

// Done emits the terminal tick for this phase.
func (r *Reporter) Done(total int) {
	r.Report(total, total)
}

// Sub returns a Reporter for a nested phase under a different status label,
// sharing the same underlying callback.
func (r *Reporter) Sub(status string) *Reporter {
	return &Reporter{cb: r.cb, Status: status}
}

func finishOf(current, total int) FinishStatus {
	if current >= total {
		return Finished
	}
	return InProgress
}

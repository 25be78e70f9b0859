// Package notify is the user-facing notification sink: the backend analog
// of a toast. Calls are fire-and-forget; nothing ever blocks on or
// inspects the outcome.
package notify

import "log/slog"

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

type Notifier interface {
	Notify(kind Kind, message string)
}

type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(kind Kind, message string) {
	switch kind {
	case KindError:
		n.logger.Warn("user notice", "kind", kind, "message", message)
	default:
		n.logger.Info("user notice", "kind", kind, "message", message)
	}
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	Notices []Notice
}

type Notice struct {
	Kind    Kind
	Message string
}

func (r *Recorder) Notify(kind Kind, message string) {
	r.Notices = append(r.Notices, Notice{Kind: kind, Message: message})
}

func (r *Recorder) Count(kind Kind) int {
	var n int
	for _, notice := range r.Notices {
		if notice.Kind == kind {
			n++
		}
	}
	return n
}

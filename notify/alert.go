package notify

import "github.com/medibook/realtime/internal/slogging"

// Alerter raises a local, user-visible alert for a freshly stored
// notification. Implementations are best-effort: a returned error means the
// alert was skipped, never that the notification itself failed.
type Alerter interface {
	Alert(n Notification) error
}

type logAlerter struct {
	logger *slogging.Logger
}

// NewLogAlerter returns an Alerter that surfaces alerts as log lines. It is
// the default for headless environments where no desktop notifier is available.
func NewLogAlerter(logger *slogging.Logger) Alerter {
	if logger == nil {
		logger = slogging.Get()
	}
	return &logAlerter{logger: logger}
}

func (a *logAlerter) Alert(n Notification) error {
	a.logger.Info("New notification - %s: %s", n.Title, n.Message)
	return nil
}

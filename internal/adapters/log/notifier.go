// Package log adapts user-facing sync notifications onto the structured logger.
package log

import (
	"github.com/likelabs/likeship/pkg/log"
)

// Notifier implements ports.Notifier by logging each notification. The CLI
// has no notification surface of its own, so the log stream is where sync
// health is reported.
type Notifier struct {
	logger log.Logger
}

// NewNotifier creates a log-backed notifier.
func NewNotifier(logger log.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// OnLoginRequired reports that records are queuing because no session exists.
func (n *Notifier) OnLoginRequired() {
	n.logger.Warn("login required, records are being queued")
}

// OnSessionExpired reports that the session is dead and needs re-authentication.
func (n *Notifier) OnSessionExpired() {
	n.logger.Warn("session expired, please log in again")
}

// OnNetworkError reports a transient delivery failure.
func (n *Notifier) OnNetworkError(err error) {
	n.logger.Warn("network error, will retry", log.Err(err))
}

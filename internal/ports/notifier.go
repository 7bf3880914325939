package ports

// Notifier surfaces user-facing sync notifications. The sync engine never
// raises expected failures to its caller; it reports them here and keeps
// the record safe in the queue.
type Notifier interface {
	// OnLoginRequired fires when a record is queued because no credential
	// is stored.
	OnLoginRequired()

	// OnSessionExpired fires when the refresh token was rejected and the
	// credential was cleared.
	OnSessionExpired()

	// OnNetworkError fires when a transient transport failure queued a
	// record for retry.
	OnNetworkError(err error)
}

// NoopNotifier discards all notifications.
type NoopNotifier struct{}

// OnLoginRequired discards the notification.
func (NoopNotifier) OnLoginRequired() {}

// OnSessionExpired discards the notification.
func (NoopNotifier) OnSessionExpired() {}

// OnNetworkError discards the notification.
func (NoopNotifier) OnNetworkError(error) {}

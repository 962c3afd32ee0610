package notifiers

// Compile-time checks that all notifier types implement the Notifier interface.
var (
	_ Notifier = (*Sensu)(nil)
	_ Notifier = (*Ntfy)(nil)
	_ Notifier = (*Webhook)(nil)
)

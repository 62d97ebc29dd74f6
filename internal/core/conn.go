package core

// Conn is one live transport channel. The transport layer supplies the
// implementation; the core only ever sends events to it or closes it.
//
// Send must not block: a full outbound buffer or a closed channel returns
// ErrSlowConsumer / ErrConnClosed, which the broadcast engine treats as an
// implicit disconnect for that connection.
type Conn interface {
	// ID returns the process-unique connection id.
	ID() string
	// Send queues an event for delivery to the peer.
	Send(ev *Event) error
	// Close tears down the transport channel. Safe to call more than once.
	Close() error
}

// Package sink defines the outbound chat destinations for menu messages.
package sink

import "context"

// Message is one formatted chat post.
type Message struct {
	// Hall labels which dining hall the message is about (used for logging
	// and audit only; closed notices leave it empty).
	Hall string
	Text string
}

// Sink delivers messages to one chat destination. Implementations must be
// safe for sequential re-use across cycles.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

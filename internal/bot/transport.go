package bot

import "context"

// Inbound is a normalised inbound chat message or callback.
type Inbound struct {
	SenderID    int64
	Username    string
	DisplayName string
	// Text is empty for callback-style messages, which carry their
	// payload in CallbackData instead.
	Text         string
	CallbackData string
	IsReply      bool
	// ReplyToSenderID is the identity that authored the replied-to
	// message, zero when IsReply is false.
	ReplyToSenderID int64
}

// Transport is the chat platform boundary. Implementations own their
// polling mechanics, including silently retrying long-poll timeouts.
type Transport interface {
	Updates() <-chan Inbound
	Send(ctx context.Context, targetID int64, text string) error
	Close() error
}

package transport

import "context"

// ChatTarget addresses a chat (and optionally a forum topic) on the chat surface.
type ChatTarget struct {
	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id,omitempty"` // telegram forum topic thread id (0 if none)
}

// MessageRef addresses a previously sent message so it can be edited in place.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	ThreadID  int   `json:"thread_id,omitempty"`
	MessageID int   `json:"message_id"`
}

func (r MessageRef) Target() ChatTarget {
	return ChatTarget{ChatID: r.ChatID, ThreadID: r.ThreadID}
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Adapter is the delivery capability handed to publishers and the log sink.
// Implementations must be safe for concurrent use.
type Adapter interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
	// SetTitle renames the chat itself (used for at-a-glance summaries).
	SetTitle(ctx context.Context, to ChatTarget, title string) error
}

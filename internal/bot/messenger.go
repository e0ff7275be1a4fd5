package bot

import "context"

// Messenger delivers outbound messages with an optional menu. The chat
// transport implements it; the bot never talks to the wire directly.
type Messenger interface {
	SendMessage(ctx context.Context, userID int64, text string, menu *Menu) error
}

package platform

import (
	"github.com/matheus3301/postbot/internal/markup"
	"github.com/matheus3301/postbot/internal/post"
)

// Update is one inbound interaction from an admin.
type Update struct {
	UserID    int64
	ChatID    int64
	MessageID string

	// Command is the bot command without the slash ("start"), if any.
	Command  string
	Text     string
	Entities []markup.Entity

	Media    *Media
	Callback *Callback
}

// Media is an attachment received from the admin.
type Media struct {
	Kind     post.MediaKind
	Ref      string
	FileName string
	MIME     string
	Size     int64
}

// Callback is an inline button press.
type Callback struct {
	ID        string
	Data      string
	MessageID string
}

// Handler consumes updates.
type Handler interface {
	HandleUpdate(u Update)
}

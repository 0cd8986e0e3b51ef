// Package platform defines the narrow surface the composer and the
// dispatcher need from a messaging network. Adapters live in internal/tg
// and internal/wa.
package platform

import (
	"context"

	"github.com/matheus3301/postbot/internal/post"
)

// Preview controls the automatic link preview of a text message.
type Preview int

const (
	PreviewDisabled Preview = iota
	PreviewAbove
	PreviewBelow
)

// Kind is the shape of one outbound send.
type Kind int

const (
	KindText Kind = iota
	KindPhoto
	KindVideo
	KindDocument
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	case KindDocument:
		return "document"
	case KindGroup:
		return "group"
	}
	return "unknown"
}

// KindOf maps a media kind to the single-send kind.
func KindOf(m post.MediaKind) Kind {
	switch m {
	case post.Photo:
		return KindPhoto
	case post.Video:
		return KindVideo
	}
	return KindDocument
}

// Button is an inline keyboard button. Exactly one of URL or Data is set.
type Button struct {
	Text string
	URL  string
	Data string
}

// Keyboard is an inline keyboard, one slice per row.
type Keyboard [][]Button

// URLRows renders link buttons as stacked single-button rows.
func URLRows(bs []post.Button) Keyboard {
	if len(bs) == 0 {
		return nil
	}
	kb := make(Keyboard, 0, len(bs))
	for _, b := range bs {
		kb = append(kb, []Button{{Text: b.Label, URL: b.URL}})
	}
	return kb
}

// Outbound is one message of a rendered post. Text is HTML: the body of a
// text message or the caption of media. Group sends carry several photos
// and never a keyboard.
type Outbound struct {
	Kind     Kind
	Text     string
	Media    []post.MediaItem
	Keyboard Keyboard
	Preview  Preview
	// CarriesText marks the message that holds the post text.
	CarriesText bool
}

// Publisher sends and maintains posts in a channel. Message ids are opaque
// strings; Send returns one id per message created (several for groups).
type Publisher interface {
	Send(ctx context.Context, chatID string, out Outbound) ([]string, error)
	EditText(ctx context.Context, chatID, messageID, html string, caption bool, kb Keyboard) error
	EditKeyboard(ctx context.Context, chatID, messageID string, kb Keyboard) error
	Delete(ctx context.Context, chatID, messageID string) error
}

// MediaSource fetches the bytes behind a media reference.
type MediaSource interface {
	Download(ctx context.Context, ref string) ([]byte, error)
}

// Bot is the admin-facing side of the chat platform.
type Bot interface {
	Publisher
	MediaSource
	Reply(ctx context.Context, chatID int64, html string, kb Keyboard) (string, error)
	EditMenu(ctx context.Context, chatID int64, messageID, html string, kb Keyboard) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	// UploadPhoto sends data as a photo to chatID and returns the platform's
	// reference for it together with the id of the carrying message.
	UploadPhoto(ctx context.Context, chatID int64, data []byte, filename string) (ref, messageID string, err error)
}

package wa

import (
	"net/http"
	"strings"

	"github.com/matheus3301/postbot/internal/markup"
	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/post"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"
)

// buttonLines renders URL buttons as "Label: url" lines.
func buttonLines(kb platform.Keyboard) string {
	var lines []string
	for _, row := range kb {
		for _, b := range row {
			if b.URL != "" {
				lines = append(lines, b.Text+": "+b.URL)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// captionWithButtons converts html to WhatsApp markup and appends the
// button lines after a blank line.
func captionWithButtons(html string, kb platform.Keyboard) string {
	text := markup.ToWhatsApp(html)
	lines := buttonLines(kb)
	switch {
	case lines == "":
		return text
	case text == "":
		return lines
	}
	return text + "\n\n" + lines
}

func textMessage(html string, kb platform.Keyboard) *waE2E.Message {
	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(captionWithButtons(html, kb)),
		},
	}
}

func mediaType(k post.MediaKind) whatsmeow.MediaType {
	switch k {
	case post.Photo:
		return whatsmeow.MediaImage
	case post.Video:
		return whatsmeow.MediaVideo
	}
	return whatsmeow.MediaDocument
}

// mediaMessage builds the message for an uploaded newsletter attachment.
// Newsletter media is not encrypted, so no media key is set.
func mediaMessage(k post.MediaKind, up whatsmeow.UploadResponse, data []byte, caption string) *waE2E.Message {
	mime := http.DetectContentType(data)
	var c *string
	if caption != "" {
		c = proto.String(caption)
	}

	switch k {
	case post.Photo:
		return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			URL:        proto.String(up.URL),
			DirectPath: proto.String(up.DirectPath),
			Mimetype:   proto.String(mime),
			FileSHA256: up.FileSHA256,
			FileLength: proto.Uint64(up.FileLength),
			Caption:    c,
		}}
	case post.Video:
		return &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			URL:        proto.String(up.URL),
			DirectPath: proto.String(up.DirectPath),
			Mimetype:   proto.String(mime),
			FileSHA256: up.FileSHA256,
			FileLength: proto.Uint64(up.FileLength),
			Caption:    c,
		}}
	}
	return &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
		URL:        proto.String(up.URL),
		DirectPath: proto.String(up.DirectPath),
		Mimetype:   proto.String(mime),
		FileSHA256: up.FileSHA256,
		FileLength: proto.Uint64(up.FileLength),
		Caption:    c,
	}}
}

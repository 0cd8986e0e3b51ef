package tg

import (
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/matheus3301/postbot/internal/markup"
	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/post"
)

// toUpdate converts a Bot API update. Only private messages and callback
// queries are of interest.
func toUpdate(upd *models.Update) (platform.Update, bool) {
	if cq := upd.CallbackQuery; cq != nil {
		u := platform.Update{
			UserID:   cq.From.ID,
			ChatID:   cq.From.ID,
			Callback: &platform.Callback{ID: cq.ID, Data: cq.Data},
		}
		switch {
		case cq.Message.Message != nil:
			u.ChatID = cq.Message.Message.Chat.ID
			u.Callback.MessageID = strconv.Itoa(cq.Message.Message.ID)
		case cq.Message.InaccessibleMessage != nil:
			u.ChatID = cq.Message.InaccessibleMessage.Chat.ID
			u.Callback.MessageID = strconv.Itoa(cq.Message.InaccessibleMessage.MessageID)
		}
		return u, true
	}

	m := upd.Message
	if m == nil || m.From == nil || string(m.Chat.Type) != "private" {
		return platform.Update{}, false
	}
	u := platform.Update{
		UserID:    m.From.ID,
		ChatID:    m.Chat.ID,
		MessageID: strconv.Itoa(m.ID),
		Text:      m.Text,
		Entities:  toEntities(m.Entities),
	}
	if u.Text == "" && m.Caption != "" {
		u.Text = m.Caption
		u.Entities = toEntities(m.CaptionEntities)
	}
	u.Command = command(u.Text)
	u.Media = toMedia(m)
	return u, true
}

// command returns the name of a leading /command, without any @botname.
func command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	name, _, _ := strings.Cut(fields[0][1:], "@")
	return strings.ToLower(name)
}

func toEntities(es []models.MessageEntity) []markup.Entity {
	if len(es) == 0 {
		return nil
	}
	out := make([]markup.Entity, 0, len(es))
	for _, e := range es {
		out = append(out, markup.Entity{
			Type:     string(e.Type),
			Offset:   e.Offset,
			Length:   e.Length,
			URL:      e.URL,
			Language: e.Language,
		})
	}
	return out
}

func toMedia(m *models.Message) *platform.Media {
	switch {
	case len(m.Photo) > 0:
		p := largestPhoto(m.Photo)
		return &platform.Media{Kind: post.Photo, Ref: p.FileID, Size: int64(p.FileSize)}
	case m.Video != nil:
		return &platform.Media{
			Kind:     post.Video,
			Ref:      m.Video.FileID,
			FileName: m.Video.FileName,
			MIME:     m.Video.MimeType,
			Size:     int64(m.Video.FileSize),
		}
	case m.Document != nil:
		return &platform.Media{
			Kind:     post.Document,
			Ref:      m.Document.FileID,
			FileName: m.Document.FileName,
			MIME:     m.Document.MimeType,
			Size:     int64(m.Document.FileSize),
		}
	}
	return nil
}

// largestPhoto picks the biggest rendition of a photo.
func largestPhoto(sizes []models.PhotoSize) *models.PhotoSize {
	var best *models.PhotoSize
	for i := range sizes {
		if best == nil || sizes[i].Width*sizes[i].Height > best.Width*best.Height {
			best = &sizes[i]
		}
	}
	return best
}

// replyMarkup returns nil for an empty keyboard so the field is omitted.
func replyMarkup(kb platform.Keyboard) models.ReplyMarkup {
	if len(kb) == 0 {
		return nil
	}
	return inlineMarkup(kb)
}

func inlineMarkup(kb platform.Keyboard) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]models.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, models.InlineKeyboardButton{Text: b.Text, URL: b.URL, CallbackData: b.Data})
		}
		rows = append(rows, row)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func linkPreview(p platform.Preview) *models.LinkPreviewOptions {
	switch p {
	case platform.PreviewAbove:
		return &models.LinkPreviewOptions{ShowAboveText: bot.True()}
	case platform.PreviewBelow:
		return &models.LinkPreviewOptions{ShowAboveText: bot.False()}
	}
	return &models.LinkPreviewOptions{IsDisabled: bot.True()}
}

// inputMedia builds an album. The caption rides on the first item.
func inputMedia(out platform.Outbound) []models.InputMedia {
	items := make([]models.InputMedia, 0, len(out.Media))
	for i, m := range out.Media {
		caption := ""
		if i == 0 {
			caption = out.Text
		}
		switch m.Kind {
		case post.Photo:
			items = append(items, &models.InputMediaPhoto{Media: m.Ref, Caption: caption, ParseMode: models.ParseModeHTML})
		case post.Video:
			items = append(items, &models.InputMediaVideo{Media: m.Ref, Caption: caption, ParseMode: models.ParseModeHTML})
		default:
			items = append(items, &models.InputMediaDocument{Media: m.Ref, Caption: caption, ParseMode: models.ParseModeHTML})
		}
	}
	return items
}

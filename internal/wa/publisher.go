package wa

import (
	"context"
	"fmt"

	"github.com/matheus3301/postbot/internal/dispatch"
	"github.com/matheus3301/postbot/internal/platform"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

// client is the part of *whatsmeow.Client the publisher uses.
type client interface {
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
	UploadNewsletter(ctx context.Context, data []byte, appInfo whatsmeow.MediaType) (whatsmeow.UploadResponse, error)
	BuildEdit(chat types.JID, id types.MessageID, newContent *waE2E.Message) *waE2E.Message
	BuildRevoke(chat, sender types.JID, id types.MessageID) *waE2E.Message
}

// Publisher posts to WhatsApp channels (newsletters). Chat ids are
// newsletter JIDs such as 120363000000000000@newsletter.
//
// WhatsApp has no inline keyboards: URL buttons are written as text lines
// under the message that carries them, and keyboard-only edits are not
// supported.
type Publisher struct {
	client client
	media  platform.MediaSource
	logger *zap.Logger
}

var _ platform.Publisher = (*Publisher)(nil)

// NewPublisher creates a Publisher.
func NewPublisher(c client, media platform.MediaSource, logger *zap.Logger) *Publisher {
	return &Publisher{client: c, media: media, logger: logger}
}

// Send posts out to chatID. Albums are sent as consecutive messages with
// the caption on the first one.
func (p *Publisher) Send(ctx context.Context, chatID string, out platform.Outbound) ([]string, error) {
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return nil, fmt.Errorf("parse JID: %w", err)
	}

	if out.Kind == platform.KindText {
		id, err := p.send(ctx, jid, textMessage(out.Text, out.Keyboard), "")
		if err != nil {
			return nil, err
		}
		return []string{id}, nil
	}

	ids := make([]string, 0, len(out.Media))
	for i, item := range out.Media {
		caption := ""
		var kb platform.Keyboard
		if i == 0 {
			caption = out.Text
		}
		if i == len(out.Media)-1 {
			kb = out.Keyboard
		}

		data, err := p.media.Download(ctx, item.Ref)
		if err != nil {
			return ids, fmt.Errorf("fetch media %d: %w", i+1, err)
		}
		kind := mediaType(item.Kind)
		up, err := p.client.UploadNewsletter(ctx, data, kind)
		if err != nil {
			return ids, fmt.Errorf("upload media %d: %w", i+1, err)
		}
		msg := mediaMessage(item.Kind, up, data, captionWithButtons(caption, kb))
		id, err := p.send(ctx, jid, msg, up.Handle)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (p *Publisher) send(ctx context.Context, jid types.JID, msg *waE2E.Message, handle string) (string, error) {
	resp, err := p.client.SendMessage(ctx, jid, msg, whatsmeow.SendRequestExtra{MediaHandle: handle})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	p.logger.Debug("message sent", zap.String("chat", jid.String()), zap.String("msg_id", resp.ID))
	return resp.ID, nil
}

// EditText replaces the text of a sent message. Captions cannot be edited.
func (p *Publisher) EditText(ctx context.Context, chatID, messageID, html string, caption bool, kb platform.Keyboard) error {
	if caption {
		return fmt.Errorf("edit caption: %w", dispatch.ErrUnsupported)
	}
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return fmt.Errorf("parse JID: %w", err)
	}
	edit := p.client.BuildEdit(jid, messageID, textMessage(html, kb))
	if _, err := p.client.SendMessage(ctx, jid, edit); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (p *Publisher) EditKeyboard(context.Context, string, string, platform.Keyboard) error {
	return fmt.Errorf("edit buttons: %w", dispatch.ErrUnsupported)
}

// Delete revokes a sent message.
func (p *Publisher) Delete(ctx context.Context, chatID, messageID string) error {
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return fmt.Errorf("parse JID: %w", err)
	}
	revoke := p.client.BuildRevoke(jid, types.EmptyJID, messageID)
	if _, err := p.client.SendMessage(ctx, jid, revoke); err != nil {
		return fmt.Errorf("revoke message: %w", err)
	}
	return nil
}

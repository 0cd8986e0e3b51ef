// Package tg adapts the Telegram Bot API to the platform interfaces. It is
// both the admin-facing bot and the publisher for Telegram channels.
package tg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/matheus3301/postbot/internal/platform"
	"go.uber.org/zap"
)

// MaxDownload is the largest file Download reads. The Bot API refuses
// downloads above 20 MB anyway.
const MaxDownload = 20 << 20

// Options tunes the adapter. Zero values use the public Bot API.
type Options struct {
	ServerURL   string
	PollTimeout time.Duration
	HTTPClient  *http.Client
}

// Bot is a Telegram bot implementing platform.Bot.
type Bot struct {
	api    *bot.Bot
	client *http.Client
	logger *zap.Logger

	mu      sync.RWMutex
	handler platform.Handler
}

var _ platform.Bot = (*Bot)(nil)

// New creates a Bot. It does not contact Telegram; see Ping.
func New(token string, opts Options, logger *zap.Logger) (*Bot, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}

	b := &Bot{client: client, logger: logger.Named("telegram")}
	botOpts := []bot.Option{
		bot.WithSkipGetMe(),
		bot.WithHTTPClient(pollTimeout, client),
		bot.WithDefaultHandler(b.onUpdate),
		bot.WithErrorsHandler(func(err error) {
			b.logger.Warn("polling error", zap.Error(err))
		}),
	}
	if opts.ServerURL != "" {
		botOpts = append(botOpts, bot.WithServerURL(opts.ServerURL))
	}

	api, err := bot.New(token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	b.api = api
	return b, nil
}

// SetHandler sets the receiver of inbound updates.
func (b *Bot) SetHandler(h platform.Handler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// Ping checks the token and returns the bot's username.
func (b *Bot) Ping(ctx context.Context) (string, error) {
	me, err := b.api.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("get me: %w", err)
	}
	return me.Username, nil
}

// Start long-polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("polling for updates")
	b.api.Start(ctx)
	b.logger.Info("polling stopped")
}

func (b *Bot) onUpdate(_ context.Context, _ *bot.Bot, upd *models.Update) {
	u, ok := toUpdate(upd)
	if !ok {
		return
	}
	b.mu.RLock()
	h := b.handler
	b.mu.RUnlock()
	if h == nil {
		b.logger.Warn("update dropped, no handler", zap.Int64("update_id", int64(upd.ID)))
		return
	}
	h.HandleUpdate(u)
}

// Send delivers one outbound message, or one album, to chatID.
func (b *Bot) Send(ctx context.Context, chatID string, out platform.Outbound) ([]string, error) {
	switch out.Kind {
	case platform.KindText:
		msg, err := b.api.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:             chatID,
			Text:               out.Text,
			ParseMode:          models.ParseModeHTML,
			LinkPreviewOptions: linkPreview(out.Preview),
			ReplyMarkup:        replyMarkup(out.Keyboard),
		})
		return messageIDs(msg, err)
	case platform.KindPhoto, platform.KindVideo, platform.KindDocument:
		if len(out.Media) != 1 {
			return nil, fmt.Errorf("%s send needs one media item, got %d", out.Kind, len(out.Media))
		}
		return b.sendSingle(ctx, chatID, out)
	case platform.KindGroup:
		msgs, err := b.api.SendMediaGroup(ctx, &bot.SendMediaGroupParams{
			ChatID: chatID,
			Media:  inputMedia(out),
		})
		if err != nil {
			return nil, fmt.Errorf("send media group: %w", err)
		}
		ids := make([]string, 0, len(msgs))
		for _, m := range msgs {
			ids = append(ids, strconv.Itoa(m.ID))
		}
		return ids, nil
	}
	return nil, fmt.Errorf("unsupported send kind %s", out.Kind)
}

func (b *Bot) sendSingle(ctx context.Context, chatID string, out platform.Outbound) ([]string, error) {
	file := &models.InputFileString{Data: out.Media[0].Ref}
	kb := replyMarkup(out.Keyboard)
	var (
		msg *models.Message
		err error
	)
	switch out.Kind {
	case platform.KindPhoto:
		msg, err = b.api.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID: chatID, Photo: file, Caption: out.Text, ParseMode: models.ParseModeHTML, ReplyMarkup: kb,
		})
	case platform.KindVideo:
		msg, err = b.api.SendVideo(ctx, &bot.SendVideoParams{
			ChatID: chatID, Video: file, Caption: out.Text, ParseMode: models.ParseModeHTML, ReplyMarkup: kb,
		})
	default:
		msg, err = b.api.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID: chatID, Document: file, Caption: out.Text, ParseMode: models.ParseModeHTML, ReplyMarkup: kb,
		})
	}
	return messageIDs(msg, err)
}

// EditText replaces the text, or the caption, of a sent message.
func (b *Bot) EditText(ctx context.Context, chatID, messageID, html string, caption bool, kb platform.Keyboard) error {
	id, err := parseMessageID(messageID)
	if err != nil {
		return err
	}
	if caption {
		_, err = b.api.EditMessageCaption(ctx, &bot.EditMessageCaptionParams{
			ChatID: chatID, MessageID: id, Caption: html, ParseMode: models.ParseModeHTML, ReplyMarkup: replyMarkup(kb),
		})
	} else {
		_, err = b.api.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID: chatID, MessageID: id, Text: html, ParseMode: models.ParseModeHTML, ReplyMarkup: replyMarkup(kb),
		})
	}
	if err != nil && !notModified(err) {
		return fmt.Errorf("edit message %s: %w", messageID, err)
	}
	return nil
}

// EditKeyboard replaces the inline keyboard of a sent message. An empty kb
// removes it.
func (b *Bot) EditKeyboard(ctx context.Context, chatID, messageID string, kb platform.Keyboard) error {
	id, err := parseMessageID(messageID)
	if err != nil {
		return err
	}
	_, err = b.api.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID: chatID, MessageID: id, ReplyMarkup: inlineMarkup(kb),
	})
	if err != nil && !notModified(err) {
		return fmt.Errorf("edit keyboard %s: %w", messageID, err)
	}
	return nil
}

// Delete removes a sent message.
func (b *Bot) Delete(ctx context.Context, chatID, messageID string) error {
	id, err := parseMessageID(messageID)
	if err != nil {
		return err
	}
	if _, err := b.api.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: id}); err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	return nil
}

// Download fetches the content of a file id, or of an absolute URL.
func (b *Bot) Download(ctx context.Context, ref string) ([]byte, error) {
	link := ref
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		f, err := b.api.GetFile(ctx, &bot.GetFileParams{FileID: ref})
		if err != nil {
			return nil, fmt.Errorf("get file: %w", err)
		}
		if f.FileSize > MaxDownload {
			return nil, fmt.Errorf("file is %s, over the %s limit",
				humanize.IBytes(uint64(f.FileSize)), humanize.IBytes(MaxDownload))
		}
		link = b.api.FileDownloadLink(f)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownload+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) > MaxDownload {
		return nil, errors.New("download file: over the size limit")
	}
	return data, nil
}

// Reply sends a message to a private chat.
func (b *Bot) Reply(ctx context.Context, chatID int64, html string, kb platform.Keyboard) (string, error) {
	msg, err := b.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             chatID,
		Text:               html,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: linkPreview(platform.PreviewDisabled),
		ReplyMarkup:        replyMarkup(kb),
	})
	if err != nil {
		return "", fmt.Errorf("send reply: %w", err)
	}
	return strconv.Itoa(msg.ID), nil
}

// EditMenu rewrites a menu message in place.
func (b *Bot) EditMenu(ctx context.Context, chatID int64, messageID, html string, kb platform.Keyboard) error {
	id, err := parseMessageID(messageID)
	if err != nil {
		return err
	}
	_, err = b.api.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:             chatID,
		MessageID:          id,
		Text:               html,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: linkPreview(platform.PreviewDisabled),
		ReplyMarkup:        replyMarkup(kb),
	})
	if err != nil && !notModified(err) {
		return fmt.Errorf("edit menu: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button press, with an optional toast.
func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if _, err := b.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	}); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// UploadPhoto sends data as a photo to chatID and returns the file id of
// its largest size along with the message id.
func (b *Bot) UploadPhoto(ctx context.Context, chatID int64, data []byte, filename string) (string, string, error) {
	msg, err := b.api.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:              chatID,
		Photo:               &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(data)},
		DisableNotification: true,
	})
	if err != nil {
		return "", "", fmt.Errorf("upload photo: %w", err)
	}
	best := largestPhoto(msg.Photo)
	if best == nil {
		return "", "", errors.New("upload photo: no photo in response")
	}
	return best.FileID, strconv.Itoa(msg.ID), nil
}

func messageIDs(msg *models.Message, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	return []string{strconv.Itoa(msg.ID)}, nil
}

func parseMessageID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid message id %q", s)
	}
	return id, nil
}

func notModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

// Package dispatch renders drafts into platform messages, sends them, and
// keeps the published-post records in step with the channel.
package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/matheus3301/postbot/internal/article"
	"github.com/matheus3301/postbot/internal/bus"
	"github.com/matheus3301/postbot/internal/config"
	"github.com/matheus3301/postbot/internal/markup"
	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/post"
	"github.com/matheus3301/postbot/internal/store"
	"go.uber.org/zap"
)

// Store is the slice of the database the dispatcher writes.
type Store interface {
	InsertPublished(p *store.PublishedPost) error
	UpdatePublishedContent(channelID, messageID, text string, buttons []post.Button) error
	SetButtonsMessage(channelID, messageID, buttonsMessageID string) error
	DeletePublished(channelID, messageID string) (bool, error)
}

// ImageFinder locates the lead image of a linked page.
type ImageFinder interface {
	LeadImage(ctx context.Context, pageURL string) (string, error)
}

// Options tune the dispatcher.
type Options struct {
	RichArticleHosts []string
	SendTimeout      time.Duration
}

// Dispatcher sends posts through the publisher of each channel's platform.
type Dispatcher struct {
	db         Store
	publishers map[string]platform.Publisher
	images     ImageFinder
	opts       Options
	bus        *bus.Bus
	logger     *zap.Logger
}

// New creates a Dispatcher. publishers is keyed by platform name. images
// may be nil to disable lead-image lookup.
func New(db Store, publishers map[string]platform.Publisher, images ImageFinder, opts Options, b *bus.Bus, logger *zap.Logger) *Dispatcher {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	return &Dispatcher{
		db:         db,
		publishers: publishers,
		images:     images,
		opts:       opts,
		bus:        b,
		logger:     logger,
	}
}

func (d *Dispatcher) publisher(ch config.Channel) (platform.Publisher, error) {
	name := ch.Platform
	if name == "" {
		name = config.PlatformTelegram
	}
	p, ok := d.publishers[name]
	if !ok || p == nil {
		return nil, fmt.Errorf("no publisher for platform %q", name)
	}
	return p, nil
}

// Dispatch publishes draft to ch and records it. On a failed send the
// error is a *DeliveryError and nothing is recorded; messages already sent
// for the post are removed.
func (d *Dispatcher) Dispatch(ctx context.Context, ch config.Channel, draft *post.Draft, ownerID int64) (*store.PublishedPost, error) {
	pub, err := d.publisher(ch)
	if err != nil {
		return nil, &DeliveryError{Op: OpSend, Channel: ch.Key, Err: err}
	}

	effective := d.withLeadImage(ctx, draft)
	plan := Plan(effective)

	ids, err := d.execute(ctx, pub, ch.ID, plan)
	if err != nil {
		d.rollback(pub, ch.ID, ids)
		d.bus.Emit(bus.KindPostFailed, map[string]string{"channel": ch.Key, "error": err.Error()})
		return nil, &DeliveryError{Op: OpSend, Channel: ch.Key, Err: err}
	}

	rec := record(ownerID, ch.ID, effective, plan, ids)
	if err := d.db.InsertPublished(rec); err != nil {
		return rec, fmt.Errorf("record published post: %w", err)
	}

	d.logger.Info("post published",
		zap.String("channel", ch.Key),
		zap.String("message_id", rec.MessageID),
		zap.Int("messages", len(rec.MessageIDs)),
		zap.String("media_kind", rec.MediaKind()))
	d.bus.Emit(bus.KindPostPublished, map[string]string{"channel": ch.Key, "message_id": rec.MessageID})
	return rec, nil
}

// Preview renders draft into chatID through pub without recording it.
func (d *Dispatcher) Preview(ctx context.Context, pub platform.Publisher, chatID int64, draft *post.Draft) error {
	plan := Plan(d.withLeadImage(ctx, draft))
	if _, err := d.execute(ctx, pub, strconv.FormatInt(chatID, 10), plan); err != nil {
		return &DeliveryError{Op: OpSend, Channel: "preview", Err: err}
	}
	return nil
}

// execute sends the plan in order, returning ids per outbound.
func (d *Dispatcher) execute(ctx context.Context, pub platform.Publisher, chatID string, plan []platform.Outbound) ([][]string, error) {
	ids := make([][]string, 0, len(plan))
	for i, out := range plan {
		sctx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
		got, err := pub.Send(sctx, chatID, out)
		cancel()
		if err != nil {
			return ids, fmt.Errorf("message %d/%d (%s): %w", i+1, len(plan), out.Kind, err)
		}
		if len(got) == 0 {
			return ids, fmt.Errorf("message %d/%d (%s): no message id returned", i+1, len(plan), out.Kind)
		}
		ids = append(ids, got)
	}
	return ids, nil
}

func (d *Dispatcher) rollback(pub platform.Publisher, chatID string, sent [][]string) {
	for _, group := range sent {
		for _, id := range group {
			ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
			if err := pub.Delete(ctx, chatID, id); err != nil {
				d.logger.Warn("failed to remove partial post", zap.String("message_id", id), zap.Error(err))
			}
			cancel()
		}
	}
}

// withLeadImage swaps a link-only draft for one carrying the article's lead
// image when the link points at a rich-article host.
func (d *Dispatcher) withLeadImage(ctx context.Context, draft *post.Draft) *post.Draft {
	if d.images == nil || len(draft.Media) > 0 || len(d.opts.RichArticleHosts) == 0 {
		return draft
	}
	for _, link := range markup.Links(draft.Text) {
		if !article.MatchHost(link, d.opts.RichArticleHosts) {
			continue
		}
		img, err := d.images.LeadImage(ctx, link)
		if err != nil {
			d.logger.Debug("lead image lookup failed", zap.String("url", link), zap.Error(err))
			return draft
		}
		c := draft.Clone()
		c.Media = []post.MediaItem{{Kind: post.Photo, Ref: img}}
		return c
	}
	return draft
}

func record(ownerID int64, chatID string, d *post.Draft, plan []platform.Outbound, ids [][]string) *store.PublishedPost {
	now := time.Now()
	rec := &store.PublishedPost{
		OwnerID:     ownerID,
		ChannelID:   chatID,
		MessageID:   ids[0][0],
		Text:        d.Text,
		Media:       d.Clone().Media,
		Buttons:     d.Clone().Buttons,
		Layout:      d.EffectiveLayout(),
		PublishedAt: now,
		UpdatedAt:   now,
	}
	for _, group := range ids {
		rec.MessageIDs = append(rec.MessageIDs, group...)
	}
	if i, ok := textCarrier(plan); ok {
		rec.TextMessageID = ids[i][0]
		rec.TextIsCaption = plan[i].Kind != platform.KindText
	}
	if i, ok := keyboardCarrier(plan); ok {
		rec.ButtonsMessageID = ids[i][0]
	}
	return rec
}

// EditText replaces the text of a published post. The record is updated
// even when the channel copy cannot be; that case returns a DeliveryError
// with RetryableAsNewPost set.
func (d *Dispatcher) EditText(ctx context.Context, ch config.Channel, rec *store.PublishedPost, html string) error {
	if err := d.db.UpdatePublishedContent(rec.ChannelID, rec.MessageID, html, rec.Buttons); err != nil {
		return fmt.Errorf("update published post: %w", err)
	}
	rec.Text = html
	d.bus.Emit(bus.KindPostEdited, map[string]string{"channel": ch.Key, "message_id": rec.MessageID, "field": "text"})

	remoteErr := d.editRemoteText(ctx, ch, rec)
	if remoteErr != nil {
		d.logger.Warn("channel copy not updated", zap.String("message_id", rec.MessageID), zap.Error(remoteErr))
		return &DeliveryError{Op: OpEditText, Channel: ch.Key, Err: remoteErr, RetryableAsNewPost: true}
	}
	return nil
}

func (d *Dispatcher) editRemoteText(ctx context.Context, ch config.Channel, rec *store.PublishedPost) error {
	if rec.TextMessageID == "" {
		return fmt.Errorf("post was sent without text: %w", ErrUnsupported)
	}
	pub, err := d.publisher(ch)
	if err != nil {
		return err
	}

	detached := !rec.TextIsCaption && len(rec.Media) > 0
	body := BodyText(rec.Text, detached)
	if rec.TextIsCaption && markup.VisibleLen(body) > CaptionLimit {
		return fmt.Errorf("caption longer than %d characters: %w", CaptionLimit, ErrUnsupported)
	}

	var kb platform.Keyboard
	if rec.ButtonsMessageID == rec.TextMessageID {
		kb = platform.URLRows(rec.Buttons)
	}
	sctx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()
	return pub.EditText(sctx, ch.ID, rec.TextMessageID, body, rec.TextIsCaption, kb)
}

// EditButtons replaces the buttons of a published post. The record is
// updated first; see EditText for the failure contract.
func (d *Dispatcher) EditButtons(ctx context.Context, ch config.Channel, rec *store.PublishedPost, buttons []post.Button) error {
	if err := d.db.UpdatePublishedContent(rec.ChannelID, rec.MessageID, rec.Text, buttons); err != nil {
		return fmt.Errorf("update published post: %w", err)
	}
	rec.Buttons = buttons
	d.bus.Emit(bus.KindPostEdited, map[string]string{"channel": ch.Key, "message_id": rec.MessageID, "field": "buttons"})

	if err := d.editRemoteButtons(ctx, ch, rec); err != nil {
		d.logger.Warn("channel buttons not updated", zap.String("message_id", rec.MessageID), zap.Error(err))
		return &DeliveryError{Op: OpEditKeyboard, Channel: ch.Key, Err: err, RetryableAsNewPost: true}
	}
	return nil
}

func (d *Dispatcher) editRemoteButtons(ctx context.Context, ch config.Channel, rec *store.PublishedPost) error {
	pub, err := d.publisher(ch)
	if err != nil {
		return err
	}

	target := rec.ButtonsMessageID
	if target == "" {
		if rec.TextMessageID == "" || textInGroup(rec) {
			return fmt.Errorf("no message can carry buttons: %w", ErrUnsupported)
		}
		target = rec.TextMessageID
	}

	sctx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()
	if err := pub.EditKeyboard(sctx, ch.ID, target, platform.URLRows(rec.Buttons)); err != nil {
		return err
	}
	if rec.ButtonsMessageID == "" {
		if err := d.db.SetButtonsMessage(rec.ChannelID, rec.MessageID, target); err != nil {
			d.logger.Error("failed to record buttons message", zap.Error(err))
		}
		rec.ButtonsMessageID = target
	}
	return nil
}

// textInGroup reports whether the text rides on a grouped message, which
// cannot take a keyboard.
func textInGroup(rec *store.PublishedPost) bool {
	plan := Plan(rec.Draft())
	i, ok := textCarrier(plan)
	return ok && plan[i].Kind == platform.KindGroup
}

// Delete removes every message of a published post and then its record. If
// the first message cannot be deleted the record is kept.
func (d *Dispatcher) Delete(ctx context.Context, ch config.Channel, rec *store.PublishedPost) error {
	pub, err := d.publisher(ch)
	if err != nil {
		return &DeliveryError{Op: OpDelete, Channel: ch.Key, Err: err}
	}

	ids := rec.MessageIDs
	if len(ids) == 0 {
		ids = []string{rec.MessageID}
	}
	for i, id := range ids {
		sctx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
		err := pub.Delete(sctx, ch.ID, id)
		cancel()
		if err == nil {
			continue
		}
		if i == 0 {
			return &DeliveryError{Op: OpDelete, Channel: ch.Key, Err: err}
		}
		d.logger.Warn("failed to delete message part", zap.String("message_id", id), zap.Error(err))
	}

	if _, err := d.db.DeletePublished(rec.ChannelID, rec.MessageID); err != nil {
		return fmt.Errorf("delete published record: %w", err)
	}
	d.bus.Emit(bus.KindPostDeleted, map[string]string{"channel": ch.Key, "message_id": rec.MessageID})
	return nil
}

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matheus3301/postbot/internal/calendar"
	"github.com/matheus3301/postbot/internal/markup"
	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/scheduler"
	"github.com/matheus3301/postbot/internal/store"
	"go.uber.org/zap"
)

func (h *Handler) listScheduled(ctx context.Context, t *turn) error {
	reset(t.sess)
	posts, err := h.db.ListScheduledByOwner(t.u.UserID)
	if err != nil {
		return fmt.Errorf("list scheduled posts: %w", err)
	}
	if len(posts) == 0 {
		return h.reply(ctx, t, "You have no scheduled posts.", mainMenuKeyboard())
	}

	loc, now := h.cfg.Location(), h.now()
	for _, p := range posts {
		var b strings.Builder
		fmt.Fprintf(&b, "🗓 %s\n📣 %s\n", when(p.PublishAt, loc, now), escape(h.channelLabel(p.ChannelID)))
		if p.Text != "" {
			fmt.Fprintf(&b, "📝 %s\n", escape(markup.Excerpt(p.Text, excerptLen)))
		}
		if len(p.Media) > 0 {
			fmt.Fprintf(&b, "🖼 %d media (%s)\n", len(p.Media), p.MediaKind())
		}
		if p.Status == store.StatusFailed {
			fmt.Fprintf(&b, "⚠️ Failed: %s\n", escape(p.LastError))
		}
		kb := platform.Keyboard{row(
			btn("✏️ Edit", idData(prefixSchedEdit, p.ID)),
			btn("🚀 Publish now", idData(prefixSchedNow, p.ID)),
			btn("🗑 Delete", idData(prefixSchedDel, p.ID)),
		)}
		if err := h.reply(ctx, t, b.String(), kb); err != nil {
			return err
		}
	}
	return nil
}

// loadOwned returns the scheduled post named by data if it belongs to the
// user, or nil after telling the user it is gone.
func (h *Handler) loadOwned(ctx context.Context, t *turn, data, prefix string) (*store.ScheduledPost, error) {
	id, ok := parseID(data, prefix)
	if !ok {
		t.answer = "Unknown post"
		return nil, nil
	}
	p, err := h.db.GetScheduled(id)
	if err != nil {
		return nil, fmt.Errorf("load scheduled post: %w", err)
	}
	if p == nil || p.OwnerID != t.u.UserID {
		reset(t.sess)
		return nil, h.reply(ctx, t, "Post not found. It may have been published or deleted.", mainMenuKeyboard())
	}
	return p, nil
}

func (h *Handler) openScheduled(ctx context.Context, t *turn, data string) error {
	p, err := h.loadOwned(ctx, t, data, prefixSchedEdit)
	if p == nil || err != nil {
		return err
	}
	reset(t.sess)
	d := p.Draft()
	if ch, ok := h.channelByID(p.ChannelID); ok {
		d.Channel = ch.Key
	}
	t.sess.Draft = d
	t.sess.EditingScheduledID = p.ID
	return h.showDecision(ctx, t)
}

func (h *Handler) saveScheduled(ctx context.Context, t *turn) error {
	p, err := h.db.GetScheduled(t.sess.EditingScheduledID)
	if err != nil {
		return fmt.Errorf("load scheduled post: %w", err)
	}
	if p == nil {
		reset(t.sess)
		return h.reply(ctx, t, "Post not found. It may have been published or deleted.", mainMenuKeyboard())
	}

	d := t.sess.Draft
	if d.ScheduledAt == nil || calendar.ValidateFuture(*d.ScheduledAt, h.now()) != nil {
		t.sess.State = StateCalendar
		now := h.now().In(h.cfg.Location())
		return h.reply(ctx, t, "The publish time has passed. Pick a new day:", calendarKeyboard(now, now))
	}

	p.ApplyDraft(d)
	if _, err := h.scheduler.Reschedule(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			reset(t.sess)
			return h.reply(ctx, t, "Post not found. It may have been published or deleted.", mainMenuKeyboard())
		}
		return err
	}

	reset(t.sess)
	msg := fmt.Sprintf("💾 Saved. Publishing %s on %s.",
		when(p.PublishAt, h.cfg.Location(), h.now()), escape(h.channelLabel(p.ChannelID)))
	return h.reply(ctx, t, msg, mainMenuKeyboard())
}

func (h *Handler) publishScheduledNow(ctx context.Context, t *turn, data string) error {
	p, err := h.loadOwned(ctx, t, data, prefixSchedNow)
	if p == nil || err != nil {
		return err
	}

	var published *store.PublishedPost
	err = h.scheduler.PublishNow(ctx, p.ID, func(ctx context.Context, p *store.ScheduledPost) error {
		rec, err := h.publishStored(ctx, p)
		published = rec
		return err
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		reset(t.sess)
		return h.reply(ctx, t, "Post not found. It may have been published or deleted.", mainMenuKeyboard())
	case errors.Is(err, scheduler.ErrFiring):
		return h.reply(ctx, t, "This post is being published right now.", nil)
	case err != nil:
		return h.reply(ctx, t, "Could not publish: "+escape(err.Error())+"\nThe post stays scheduled.", nil)
	}

	reset(t.sess)
	return h.announce(ctx, t.u.ChatID, published)
}

func (h *Handler) deleteScheduled(ctx context.Context, t *turn, data string) error {
	p, err := h.loadOwned(ctx, t, data, prefixSchedDel)
	if p == nil || err != nil {
		return err
	}
	if err := h.scheduler.Cancel(ctx, p.JobID); err != nil {
		return err
	}
	if _, err := h.db.DeleteScheduled(p.ID); err != nil {
		return fmt.Errorf("delete scheduled post: %w", err)
	}
	reset(t.sess)
	t.answer = "Deleted"
	return h.show(ctx, t, "🗑 Scheduled post deleted.", nil)
}

// publishStored dispatches a stored post to its channel. A post that went
// out but could not be recorded counts as published.
func (h *Handler) publishStored(ctx context.Context, p *store.ScheduledPost) (*store.PublishedPost, error) {
	ch, ok := h.channelByID(p.ChannelID)
	if !ok {
		return nil, fmt.Errorf("channel %s is no longer configured", p.ChannelID)
	}
	rec, err := h.dispatcher.Dispatch(ctx, ch, p.Draft(), p.OwnerID)
	if err != nil && rec == nil {
		return nil, err
	}
	if err != nil {
		h.logger.Error("published but not recorded", zap.Int64("post_id", p.ID), zap.Error(err))
	}
	return rec, nil
}

// announce tells chatID a post went out and offers edit and delete controls.
func (h *Handler) announce(ctx context.Context, chatID int64, rec *store.PublishedPost) error {
	ch, ok := h.channelByID(rec.ChannelID)
	if !ok {
		_, err := h.bot.Reply(ctx, chatID, "✅ Published.", nil)
		return err
	}
	_, err := h.bot.Reply(ctx, chatID, "✅ Published to "+escape(ch.Name)+".", publishedControls(ch.Key, rec.MessageID))
	return err
}

// FireScheduled is the scheduler's fire function: it publishes a due post
// and tells its owner how it went.
func (h *Handler) FireScheduled(ctx context.Context, p *store.ScheduledPost) error {
	rec, err := h.publishStored(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		msg := fmt.Sprintf("⚠️ A scheduled post for %s could not be published: %s\nIt is kept under Scheduled posts.",
			escape(h.channelLabel(p.ChannelID)), escape(err.Error()))
		if _, nErr := h.bot.Reply(ctx, p.OwnerID, msg, mainMenuKeyboard()); nErr != nil {
			h.logger.Warn("failed to notify owner", zap.Int64("user_id", p.OwnerID), zap.Error(nErr))
		}
		return err
	}
	if err := h.announce(ctx, p.OwnerID, rec); err != nil {
		h.logger.Warn("failed to notify owner", zap.Int64("user_id", p.OwnerID), zap.Error(err))
	}
	return nil
}

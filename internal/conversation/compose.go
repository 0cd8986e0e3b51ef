package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/postbot/internal/calendar"
	"github.com/matheus3301/postbot/internal/dispatch"
	"github.com/matheus3301/postbot/internal/imageconv"
	"github.com/matheus3301/postbot/internal/markup"
	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/post"
	"github.com/matheus3301/postbot/internal/store"
	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

func (h *Handler) startCreate(ctx context.Context, t *turn) error {
	reset(t.sess)
	t.sess.Draft = post.New()
	t.sess.State = StateAwaitingText
	return h.reply(ctx, t, textPrompt(), platform.Keyboard{cancelRow})
}

// onText stores the post text and moves to media, or back to the
// decision menu when editing.
func (h *Handler) onText(ctx context.Context, t *turn) error {
	if t.u.Text == "" {
		return h.reply(ctx, t, "I need text here. "+textPrompt(), platform.Keyboard{cancelRow})
	}
	t.sess.Draft.Text = markup.FromEntities(t.u.Text, t.u.Entities)
	if t.u.Media != nil {
		// Captioned media: the caption is the text, the file the first item.
		t.sess.Draft.AddMedia(h.mediaItem(ctx, t.u.ChatID, t.u.Media))
	}

	if t.sess.EditingFromSchedule {
		t.sess.EditingFromSchedule = false
		return h.showDecision(ctx, t)
	}
	t.sess.State = StateMedia
	text, kb := mediaView(t.sess.Draft)
	return h.reply(ctx, t, text, kb)
}

func (h *Handler) onMedia(ctx context.Context, t *turn) error {
	m := t.u.Media
	if m == nil {
		text, kb := mediaView(t.sess.Draft)
		return h.reply(ctx, t, "That is not a photo, video or document.\n"+text, kb)
	}

	t.sess.Draft.AddMedia(h.mediaItem(ctx, t.u.ChatID, m))

	text, kb := mediaView(t.sess.Draft)
	return h.reply(ctx, t, text, kb)
}

// mediaItem turns an incoming attachment into a draft item, storing image
// files as photos when the conversion works.
func (h *Handler) mediaItem(ctx context.Context, chatID int64, m *platform.Media) post.MediaItem {
	item := post.MediaItem{Kind: m.Kind, Ref: m.Ref}
	if m.Kind == post.Document && imageconv.IsImageDocument(m.FileName, m.MIME) {
		if ref, err := h.documentToPhoto(ctx, chatID, m); err != nil {
			h.logger.Warn("image document kept as document", zap.String("file", m.FileName), zap.Error(err))
		} else {
			item = post.MediaItem{Kind: post.Photo, Ref: ref}
		}
	}
	return item
}

// documentToPhoto re-uploads an image sent as a file so it is stored as a
// photo reference. The temporary upload is removed from the admin chat.
func (h *Handler) documentToPhoto(ctx context.Context, chatID int64, m *platform.Media) (string, error) {
	data, err := h.bot.Download(ctx, m.Ref)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	photo, err := imageconv.ToPhoto(data)
	if err != nil {
		return "", err
	}
	ref, msgID, err := h.bot.UploadPhoto(ctx, chatID, photo, imageconv.PhotoName(m.FileName))
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	if err := h.bot.Delete(ctx, adminChat(chatID), msgID); err != nil {
		h.logger.Debug("failed to remove temporary photo", zap.Error(err))
	}
	return ref, nil
}

func (h *Handler) onMediaCallback(ctx context.Context, t *turn, data string) error {
	if i, ok := parseIndex(data, prefixMediaDel); ok {
		if !t.sess.Draft.RemoveMedia(i) {
			t.answer = "Already removed"
		}
		text, kb := mediaView(t.sess.Draft)
		return h.show(ctx, t, text, kb)
	}
	if data != cbMediaDone {
		t.answer = "This menu is no longer active"
		return nil
	}

	if t.sess.EditingFromSchedule {
		t.sess.EditingFromSchedule = false
		return h.showDecision(ctx, t)
	}
	t.sess.State = StateButtons
	text, kb := buttonsView(t.sess.Draft)
	return h.reply(ctx, t, text, kb)
}

func (h *Handler) onButtonLines(ctx context.Context, t *turn) error {
	buttons, err := post.ParseButtons(t.u.Text)
	if err != nil {
		_, kb := buttonsView(t.sess.Draft)
		return h.reply(ctx, t, "I could not read any button.\n"+buttonFormatHelp, kb)
	}
	t.sess.Draft.AddButtons(buttons)
	text, kb := buttonsView(t.sess.Draft)
	return h.reply(ctx, t, text, kb)
}

func (h *Handler) onButtonsCallback(ctx context.Context, t *turn, data string) error {
	if i, ok := parseIndex(data, prefixButtonDel); ok {
		if !t.sess.Draft.RemoveButton(i) {
			t.answer = "Already removed"
		}
		text, kb := buttonsView(t.sess.Draft)
		return h.show(ctx, t, text, kb)
	}
	if data != cbButtonsDone {
		t.answer = "This menu is no longer active"
		return nil
	}
	t.sess.EditingFromSchedule = false
	return h.showDecision(ctx, t)
}

// showDecision renders the schedule decision menu, or the scheduled-post
// edit menu when a stored post is being edited.
func (h *Handler) showDecision(ctx context.Context, t *turn) error {
	channel := ""
	if t.sess.EditingScheduledID != 0 {
		t.sess.State = StateScheduledEdit
		if ch, ok := h.cfg.Channel(t.sess.Draft.Channel); ok {
			channel = ch.Name
		} else {
			channel = t.sess.Draft.Channel
		}
	} else {
		t.sess.State = StateScheduleDecision
	}
	text, kb := decisionMenu(t.sess, channel, h.cfg.Location(), h.now())
	return h.reply(ctx, t, text, kb)
}

func (h *Handler) onDecisionCallback(ctx context.Context, t *turn, data string) error {
	d := t.sess.Draft
	switch data {
	case cbSendNow:
		if t.sess.EditingScheduledID != 0 {
			break
		}
		d.ScheduledAt = nil
		return h.showChannels(ctx, t)
	case cbSchedule:
		t.sess.State = StateCalendar
		now := h.now().In(h.cfg.Location())
		return h.reply(ctx, t, "Pick a day:", calendarKeyboard(now, now))
	case cbEditText:
		t.sess.EditingFromSchedule = true
		t.sess.State = StateAwaitingText
		return h.reply(ctx, t, textPrompt(), platform.Keyboard{cancelRow})
	case cbEditMed:
		t.sess.EditingFromSchedule = true
		t.sess.State = StateMedia
		text, kb := mediaView(d)
		return h.reply(ctx, t, text, kb)
	case cbEditBtn:
		t.sess.EditingFromSchedule = true
		t.sess.State = StateButtons
		text, kb := buttonsView(d)
		return h.reply(ctx, t, text, kb)
	case cbLayout:
		d.ToggleLayout()
		t.answer = "Layout: " + layoutLabel(d.EffectiveLayout())
		text, kb := decisionMenu(t.sess, h.editingChannelName(t), h.cfg.Location(), h.now())
		return h.show(ctx, t, text, kb)
	case cbPreview:
		return h.preview(ctx, t)
	case cbSave:
		if t.sess.EditingScheduledID != 0 {
			return h.saveScheduled(ctx, t)
		}
	case cbBack:
		if t.sess.EditingScheduledID != 0 {
			reset(t.sess)
			return h.reply(ctx, t, "Changes discarded.", mainMenuKeyboard())
		}
	}
	t.answer = "This menu is no longer active"
	return nil
}

func (h *Handler) editingChannelName(t *turn) string {
	if ch, ok := h.cfg.Channel(t.sess.Draft.Channel); ok {
		return ch.Name
	}
	return t.sess.Draft.Channel
}

func (h *Handler) preview(ctx context.Context, t *turn) error {
	if err := h.dispatcher.Preview(ctx, h.bot, t.u.ChatID, t.sess.Draft); err != nil {
		h.logger.Warn("preview failed", zap.Error(err))
		if err := h.reply(ctx, t, "Preview failed: "+escape(err.Error()), nil); err != nil {
			return err
		}
	}
	return h.showDecision(ctx, t)
}

func (h *Handler) onCalendarCallback(ctx context.Context, t *turn, data string) error {
	if !calendar.IsCalendar(data) {
		t.answer = "This menu is no longer active"
		return nil
	}
	loc := h.cfg.Location()
	cb, err := calendar.Parse(data, loc)
	if err != nil {
		t.answer = "Unknown date"
		return nil
	}

	switch cb.Action {
	case calendar.ActionIgnore:
		return nil
	case calendar.ActionPrev, calendar.ActionNext:
		t.sess.State = StateCalendar
		return h.show(ctx, t, "Pick a day:", calendarKeyboard(cb.Target(), h.now().In(loc)))
	}

	t.sess.PendingDate = cb.Day.Format(dayLayout)
	t.sess.State = StateAwaitingTime
	return h.reply(ctx, t, fmt.Sprintf("%s selected. Send the time as HH:MM (%s).",
		cb.Day.Format("Mon 02 Jan 2006"), escape(loc.String())), platform.Keyboard{cancelRow})
}

func (h *Handler) onTime(ctx context.Context, t *turn) error {
	loc := h.cfg.Location()
	day, err := time.ParseInLocation(dayLayout, t.sess.PendingDate, loc)
	if err != nil {
		t.sess.State = StateCalendar
		now := h.now().In(loc)
		return h.reply(ctx, t, "Pick a day first:", calendarKeyboard(now, now))
	}

	at, err := calendar.Combine(day, t.u.Text, loc, h.now())
	switch {
	case errors.Is(err, calendar.ErrBadTimeFormat):
		return h.reply(ctx, t, "Please send the time as HH:MM, for example 09:30.", platform.Keyboard{cancelRow})
	case errors.Is(err, calendar.ErrNotFuture):
		return h.reply(ctx, t, "That time has already passed. Send a later time, or /cancel.", platform.Keyboard{cancelRow})
	case err != nil:
		return err
	}

	t.sess.Draft.ScheduledAt = &at
	t.sess.PendingDate = ""
	if t.sess.EditingScheduledID != 0 {
		return h.showDecision(ctx, t)
	}
	return h.showChannels(ctx, t)
}

func (h *Handler) showChannels(ctx context.Context, t *turn) error {
	t.sess.State = StateChannelSelect
	kb := make(platform.Keyboard, 0, len(h.cfg.Channels)+1)
	for _, ch := range h.cfg.Channels {
		kb = append(kb, row(btn(ch.Name, prefixChannel+ch.Key)))
	}
	kb = append(kb, cancelRow)
	return h.reply(ctx, t, "Choose the channel:", kb)
}

func (h *Handler) onChannelCallback(ctx context.Context, t *turn, data string) error {
	key, ok := cutPrefix(data, prefixChannel)
	if !ok {
		t.answer = "This menu is no longer active"
		return nil
	}
	ch, ok := h.cfg.Channel(key)
	if !ok {
		t.answer = "Unknown channel"
		return h.showChannels(ctx, t)
	}

	d := t.sess.Draft
	d.Channel = ch.Key
	if d.ScheduledAt != nil {
		return h.commitScheduled(ctx, t, ch.ID, ch.Name)
	}

	rec, err := h.dispatcher.Dispatch(ctx, ch, d, t.u.UserID)
	if err != nil && rec == nil {
		h.logger.Warn("publish failed", zap.String("channel", ch.Key), zap.Error(err))
		if err := h.reply(ctx, t, "Could not publish: "+escape(err.Error())+"\nYour draft is kept.", nil); err != nil {
			return err
		}
		return h.showDecision(ctx, t)
	}
	reset(t.sess)
	if err != nil {
		h.logger.Error("published but not recorded", zap.String("channel", ch.Key), zap.Error(err))
		msg := "⚠️ Published to " + escape(ch.Name) + ", but the post could not be saved. It cannot be edited or deleted from the bot."
		if err := h.reply(ctx, t, msg, nil); err != nil {
			return err
		}
		return h.reply(ctx, t, "What would you like to do next?", mainMenuKeyboard())
	}
	if err := h.reply(ctx, t, "✅ Published to "+escape(ch.Name)+".", publishedControls(ch.Key, rec.MessageID)); err != nil {
		return err
	}
	return h.reply(ctx, t, "What would you like to do next?", mainMenuKeyboard())
}

// commitScheduled stores the draft and registers its timer in one step.
func (h *Handler) commitScheduled(ctx context.Context, t *turn, channelID, channelName string) error {
	d := t.sess.Draft
	at := *d.ScheduledAt
	if err := calendar.ValidateFuture(at, h.now()); err != nil {
		t.sess.State = StateCalendar
		now := h.now().In(h.cfg.Location())
		return h.reply(ctx, t, "That time has passed meanwhile. Pick a new day:", calendarKeyboard(now, now))
	}

	p := store.NewScheduledPost(t.u.UserID, d, channelID, at)
	if _, err := h.scheduler.Schedule(ctx, p); err != nil {
		return err
	}

	reset(t.sess)
	msg := fmt.Sprintf("🗓 Scheduled for %s on %s.", when(at, h.cfg.Location(), h.now()), escape(channelName))
	return h.reply(ctx, t, msg, mainMenuKeyboard())
}

// deliveryMessage turns a dispatch error into text for the admin.
func deliveryMessage(err error) string {
	if de, ok := dispatch.AsDeliveryError(err); ok && de.RetryableAsNewPost {
		return "Saved, but the channel copy could not be updated (" + escape(de.Err.Error()) +
			"). Publish it again as a new post to bring the channel up to date."
	}
	return "Failed: " + escape(err.Error())
}

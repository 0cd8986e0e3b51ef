// Package conversation is the admin-facing state machine: it composes
// drafts over many turns, commits them to a channel or the schedule, and
// edits posts that already went out.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/postbot/internal/config"
	"github.com/matheus3301/postbot/internal/dispatch"
	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/scheduler"
	"github.com/matheus3301/postbot/internal/sessionstore"
	"github.com/matheus3301/postbot/internal/store"
	"go.uber.org/zap"
)

// Deps are the collaborators of a Handler.
type Deps struct {
	Config     *config.Config
	Bot        platform.Bot
	Sessions   sessionstore.Store
	Store      *store.DB
	Dispatcher *dispatch.Dispatcher
	Scheduler  *scheduler.Scheduler
	Logger     *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler runs conversation turns. Turns for one user must not overlap;
// see Serial.
type Handler struct {
	cfg        *config.Config
	bot        platform.Bot
	sessions   sessionstore.Store
	db         *store.DB
	dispatcher *dispatch.Dispatcher
	scheduler  *scheduler.Scheduler
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a Handler.
func New(d Deps) *Handler {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		cfg:        d.Config,
		bot:        d.Bot,
		sessions:   d.Sessions,
		db:         d.Store,
		dispatcher: d.Dispatcher,
		scheduler:  d.Scheduler,
		logger:     d.Logger.Named("conversation"),
		now:        now,
	}
}

// turn is the state of one update being handled.
type turn struct {
	u    platform.Update
	sess *sessionstore.Session
	// answer is shown as the callback acknowledgement.
	answer string
}

func (t *turn) callbackData() string {
	if t.u.Callback == nil {
		return ""
	}
	return t.u.Callback.Data
}

// menuID is the message to edit in place, if the turn came from a button.
func (t *turn) menuID() string {
	if t.u.Callback == nil {
		return ""
	}
	return t.u.Callback.MessageID
}

// Handle processes one update. Errors are reported to the user and reset
// the conversation; the returned error is for logging.
func (h *Handler) Handle(ctx context.Context, u platform.Update) error {
	logger := h.logger.With(zap.Int64("user_id", u.UserID))

	if !h.cfg.IsAdmin(u.UserID) {
		logger.Warn("unauthorized user")
		if u.Callback != nil {
			_ = h.bot.AnswerCallback(ctx, u.Callback.ID, "Not allowed")
		}
		_, err := h.bot.Reply(ctx, u.ChatID, "Sorry, you are not allowed to use this bot.", nil)
		return err
	}

	sess, err := h.sessions.Get(ctx, u.UserID)
	if err != nil {
		logger.Error("failed to load session", zap.Error(err))
		sess = nil
	}
	if sess == nil {
		sess = &sessionstore.Session{UserID: u.UserID, State: StateMainMenu}
	}
	sess.ChatID = u.ChatID
	t := &turn{u: u, sess: sess}

	turnErr := h.route(ctx, t)
	if turnErr != nil {
		logger.Error("turn failed", zap.String("state", sess.State), zap.Error(turnErr))
		reset(sess)
		_, _ = h.bot.Reply(ctx, u.ChatID, "Something went wrong: "+escape(turnErr.Error())+"\nBack to the main menu.", mainMenuKeyboard())
	}

	if u.Callback != nil {
		if err := h.bot.AnswerCallback(ctx, u.Callback.ID, t.answer); err != nil {
			logger.Debug("failed to answer callback", zap.Error(err))
		}
	}

	if err := h.sessions.Put(ctx, sess); err != nil {
		logger.Error("failed to save session", zap.Error(err))
		return errors.Join(turnErr, err)
	}
	return turnErr
}

func (h *Handler) route(ctx context.Context, t *turn) error {
	data := t.callbackData()
	switch {
	case t.u.Command == "start":
		reset(t.sess)
		return h.reply(ctx, t, "Hi! I compose, schedule and publish channel posts.\nWhat would you like to do?", mainMenuKeyboard())
	case t.u.Command == "cancel" || data == cbCancel:
		reset(t.sess)
		return h.reply(ctx, t, "Cancelled. What would you like to do?", mainMenuKeyboard())
	case t.u.Callback != nil:
		return h.onCallback(ctx, t, data)
	case t.u.Command != "":
		return h.reply(ctx, t, "Unknown command. Use /start or /cancel.", nil)
	default:
		return h.onMessage(ctx, t)
	}
}

func (h *Handler) onCallback(ctx context.Context, t *turn, data string) error {
	switch data {
	case cbCreate:
		return h.startCreate(ctx, t)
	case cbScheduled:
		return h.listScheduled(ctx, t)
	case cbPublished:
		return h.listPublished(ctx, t)
	case cbDeleteDecline:
		reset(t.sess)
		return h.reply(ctx, t, "The post was kept.", mainMenuKeyboard())
	}

	switch {
	case strings.HasPrefix(data, prefixSchedEdit):
		return h.openScheduled(ctx, t, data)
	case strings.HasPrefix(data, prefixSchedNow):
		return h.publishScheduledNow(ctx, t, data)
	case strings.HasPrefix(data, prefixSchedDel):
		return h.deleteScheduled(ctx, t, data)
	case strings.HasPrefix(data, prefixPubEdit):
		return h.openPublished(ctx, t, data)
	case strings.HasPrefix(data, prefixPubDelete):
		return h.confirmDeletePublished(ctx, t, data)
	case strings.HasPrefix(data, prefixPubConfirm):
		return h.deletePublished(ctx, t, data)
	}

	if needsDraft(t.sess.State) && t.sess.Draft == nil {
		reset(t.sess)
		return h.reply(ctx, t, "This draft has expired. What would you like to do?", mainMenuKeyboard())
	}

	switch t.sess.State {
	case StateMedia:
		return h.onMediaCallback(ctx, t, data)
	case StateButtons:
		return h.onButtonsCallback(ctx, t, data)
	case StateScheduleDecision, StateScheduledEdit:
		return h.onDecisionCallback(ctx, t, data)
	case StateCalendar, StateAwaitingTime:
		return h.onCalendarCallback(ctx, t, data)
	case StateChannelSelect:
		return h.onChannelCallback(ctx, t, data)
	case StatePublishedEdit, StatePublishedAwaitText, StatePublishedAwaitButtons:
		return h.onPublishedCallback(ctx, t, data)
	}

	t.answer = "This menu is no longer active"
	return nil
}

func (h *Handler) onMessage(ctx context.Context, t *turn) error {
	if needsDraft(t.sess.State) && t.sess.Draft == nil {
		reset(t.sess)
		return h.reply(ctx, t, "This draft has expired. What would you like to do?", mainMenuKeyboard())
	}

	switch t.sess.State {
	case StateAwaitingText:
		return h.onText(ctx, t)
	case StateMedia:
		return h.onMedia(ctx, t)
	case StateButtons:
		return h.onButtonLines(ctx, t)
	case StateAwaitingTime:
		return h.onTime(ctx, t)
	case StatePublishedAwaitText:
		return h.onPublishedText(ctx, t)
	case StatePublishedAwaitButtons:
		return h.onPublishedButtons(ctx, t)
	case StateMainMenu:
		return h.reply(ctx, t, "What would you like to do?", mainMenuKeyboard())
	}
	return h.reply(ctx, t, "Please use the buttons of the last menu, or /cancel.", nil)
}

func needsDraft(state string) bool {
	switch state {
	case StateAwaitingText, StateMedia, StateButtons, StateScheduleDecision, StateCalendar,
		StateAwaitingTime, StateChannelSelect, StateScheduledEdit:
		return true
	}
	return false
}

// reset returns the session to the main menu and drops any draft.
func reset(s *sessionstore.Session) {
	*s = sessionstore.Session{UserID: s.UserID, ChatID: s.ChatID, State: StateMainMenu}
}

func (h *Handler) reply(ctx context.Context, t *turn, text string, kb platform.Keyboard) error {
	_, err := h.bot.Reply(ctx, t.u.ChatID, text, kb)
	if err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

// show edits the menu the turn came from, or sends a new message.
func (h *Handler) show(ctx context.Context, t *turn, text string, kb platform.Keyboard) error {
	if id := t.menuID(); id != "" {
		err := h.bot.EditMenu(ctx, t.u.ChatID, id, text, kb)
		if err == nil {
			return nil
		}
		h.logger.Debug("menu edit failed, sending new message", zap.Error(err))
	}
	return h.reply(ctx, t, text, kb)
}

func (h *Handler) channelByID(id string) (config.Channel, bool) {
	return h.cfg.ChannelByID(id)
}

func (h *Handler) channelLabel(id string) string {
	if ch, ok := h.channelByID(id); ok {
		return ch.Name
	}
	return id
}

func adminChat(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

package conversation

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/postbot/internal/bus"
	"github.com/matheus3301/postbot/internal/config"
	"github.com/matheus3301/postbot/internal/dispatch"
	"github.com/matheus3301/postbot/internal/markup"
	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/platform/platformtest"
	"github.com/matheus3301/postbot/internal/post"
	"github.com/matheus3301/postbot/internal/scheduler"
	"github.com/matheus3301/postbot/internal/sessionstore"
	"github.com/matheus3301/postbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	admin     = int64(42)
	channelID = "-100123"
)

type harness struct {
	t        *testing.T
	h        *Handler
	bot      *platformtest.Fake
	db       *store.DB
	sessions *sessionstore.Memory
	sched    *scheduler.Scheduler
	cfg      *config.Config
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		Timezone: "UTC",
		Telegram: config.Telegram{Token: "t", Admins: []int64{admin}},
		Channels: []config.Channel{
			{Key: "electronics", Name: "Electronics", ID: channelID, Platform: config.PlatformTelegram},
			{Key: "fect", Name: "FECT", ID: "-100456", Platform: config.PlatformTelegram},
		},
	}
	cfg.ApplyDefaults()

	bot := platformtest.New()
	b := bus.New()
	logger := zap.NewNop()
	disp := dispatch.New(db, map[string]platform.Publisher{config.PlatformTelegram: bot}, nil, dispatch.Options{}, b, logger)
	sched := scheduler.New(db, scheduler.Options{}, b, logger)
	sessions := sessionstore.NewMemory(time.Hour)

	hs := &harness{
		t:        t,
		bot:      bot,
		db:       db,
		sessions: sessions,
		sched:    sched,
		cfg:      cfg,
		now:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	hs.h = New(Deps{
		Config:     cfg,
		Bot:        bot,
		Sessions:   sessions,
		Store:      db,
		Dispatcher: disp,
		Scheduler:  sched,
		Logger:     logger,
		Now:        func() time.Time { return hs.now },
	})
	sched.SetFireFunc(hs.h.FireScheduled)
	return hs
}

func (hs *harness) handle(u platform.Update) {
	hs.t.Helper()
	if u.UserID == 0 {
		u.UserID = admin
	}
	u.ChatID = u.UserID
	require.NoError(hs.t, hs.h.Handle(context.Background(), u))
}

func (hs *harness) send(text string) {
	hs.t.Helper()
	hs.handle(platform.Update{Text: text})
}

func (hs *harness) command(name string) {
	hs.t.Helper()
	hs.handle(platform.Update{Command: name, Text: "/" + name})
}

func (hs *harness) press(data string) {
	hs.t.Helper()
	hs.handle(platform.Update{Callback: &platform.Callback{ID: "cb", Data: data, MessageID: "menu"}})
}

func (hs *harness) attach(kind post.MediaKind, ref string) {
	hs.t.Helper()
	hs.handle(platform.Update{Media: &platform.Media{Kind: kind, Ref: ref}})
}

func (hs *harness) session() *sessionstore.Session {
	hs.t.Helper()
	s, err := hs.sessions.Get(context.Background(), admin)
	require.NoError(hs.t, err)
	require.NotNil(hs.t, s)
	return s
}

func (hs *harness) state() string {
	return hs.session().State
}

// compose drives a new post up to the schedule decision menu.
func (hs *harness) compose(text string, media []post.MediaItem, buttons string) {
	hs.t.Helper()
	hs.press(cbCreate)
	hs.send(text)
	for _, m := range media {
		hs.attach(m.Kind, m.Ref)
	}
	hs.press(cbMediaDone)
	if buttons != "" {
		hs.send(buttons)
	}
	hs.press(cbButtonsDone)
	require.Equal(hs.t, StateScheduleDecision, hs.state())
}

func (hs *harness) scheduleAt(day, clock string) {
	hs.t.Helper()
	hs.press(cbSchedule)
	hs.press("cal:d:" + day)
	hs.send(clock)
}

func TestSendNowTextWithButton(t *testing.T) {
	hs := newHarness(t)

	hs.press(cbCreate)
	assert.Equal(t, StateAwaitingText, hs.state())
	hs.send("Hello")
	assert.Equal(t, StateMedia, hs.state())
	hs.press(cbMediaDone)
	assert.Equal(t, StateButtons, hs.state())
	hs.send("Go - https://example.com")
	hs.press(cbButtonsDone)
	assert.Equal(t, StateScheduleDecision, hs.state())
	hs.press(cbSendNow)
	assert.Equal(t, StateChannelSelect, hs.state())
	hs.press(prefixChannel + "electronics")

	sends := hs.bot.SendsTo(channelID)
	require.Len(t, sends, 1)
	assert.Equal(t, platform.KindText, sends[0].Out.Kind)
	assert.Equal(t, "Hello", sends[0].Out.Text)
	require.Len(t, sends[0].Out.Keyboard, 1)
	assert.Equal(t, "Go", sends[0].Out.Keyboard[0][0].Text)

	recs, err := hs.db.ListPublishedByOwner(admin, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Hello", recs[0].Text)
	assert.Empty(t, recs[0].Media)

	s := hs.session()
	assert.Equal(t, StateMainMenu, s.State)
	assert.Nil(t, s.Draft)

	n, err := hs.db.CountJobs()
	require.NoError(t, err)
	assert.Zero(t, n, "an immediate post must not touch the schedule")
}

func TestCaptionedPhotoKeepsMedia(t *testing.T) {
	hs := newHarness(t)
	hs.press(cbCreate)
	hs.handle(platform.Update{Text: "New arrivals", Media: &platform.Media{Kind: post.Photo, Ref: "photo-a"}})

	s := hs.session()
	assert.Equal(t, StateMedia, s.State)
	require.NotNil(t, s.Draft)
	assert.Equal(t, "New arrivals", s.Draft.Text)
	require.Len(t, s.Draft.Media, 1)
	assert.Equal(t, post.MediaItem{Kind: post.Photo, Ref: "photo-a"}, s.Draft.Media[0])
}

func TestPublishedButNotRecorded(t *testing.T) {
	hs := newHarness(t)
	hs.compose("Hello", nil, "")
	hs.press(cbSendNow)
	hs.bot.FailSend = func(int, platform.Outbound) error {
		_, err := hs.db.Exec(`DROP TABLE IF EXISTS published_posts`)
		return err
	}
	hs.press(prefixChannel + "electronics")

	require.Len(t, hs.bot.SendsTo(channelID), 1)
	require.GreaterOrEqual(t, len(hs.bot.Replies), 2)
	notice := hs.bot.Replies[len(hs.bot.Replies)-2]
	assert.Contains(t, notice.Text, "could not be saved")
	assert.Nil(t, notice.Keyboard)
	for _, r := range hs.bot.Replies {
		for _, kbRow := range r.Keyboard {
			for _, b := range kbRow {
				assert.False(t, strings.HasPrefix(b.Data, prefixPubEdit), "controls offered for an unrecorded post")
			}
		}
	}
	assert.Equal(t, StateMainMenu, hs.state())
}

func TestFormattedTextIsNormalized(t *testing.T) {
	hs := newHarness(t)
	hs.press(cbCreate)
	hs.handle(platform.Update{
		Text:     "Big sale",
		Entities: []markup.Entity{{Type: "bold", Offset: 0, Length: 3}},
	})
	assert.Equal(t, "<b>Big</b> sale", hs.session().Draft.Text)
}

func TestMixedMediaSendsGroupDocumentAndButtons(t *testing.T) {
	hs := newHarness(t)
	hs.compose("album", []post.MediaItem{
		{Kind: post.Photo, Ref: "p1"},
		{Kind: post.Photo, Ref: "p2"},
		{Kind: post.Document, Ref: "d1"},
	}, "Go | https://example.com")
	hs.press(cbSendNow)
	hs.press(prefixChannel + "electronics")

	sends := hs.bot.SendsTo(channelID)
	require.Len(t, sends, 3)
	assert.Equal(t, platform.KindGroup, sends[0].Out.Kind)
	assert.Equal(t, "album", sends[0].Out.Text)
	assert.Equal(t, platform.KindDocument, sends[1].Out.Kind)
	assert.Equal(t, dispatch.ButtonsOnlyText, sends[2].Out.Text)
}

func TestButtonLinesSkipMalformed(t *testing.T) {
	hs := newHarness(t)
	hs.press(cbCreate)
	hs.send("text")
	hs.press(cbMediaDone)

	hs.send("no separator here\nDocs | https://docs.example.com")
	assert.Equal(t, []post.Button{{Label: "Docs", URL: "https://docs.example.com"}}, hs.session().Draft.Buttons)
	assert.NotContains(t, hs.bot.LastReply().Text, "could not read")

	hs.send("still nothing\nalso - not a url")
	s := hs.session()
	assert.Equal(t, StateButtons, s.State)
	assert.Len(t, s.Draft.Buttons, 1, "existing buttons survive a bad submission")
	assert.Contains(t, hs.bot.LastReply().Text, "could not read")
}

func TestMediaAppendAndDeleteKeepOrder(t *testing.T) {
	hs := newHarness(t)
	hs.press(cbCreate)
	hs.send("text")
	hs.attach(post.Photo, "a")
	hs.attach(post.Video, "b")
	hs.attach(post.Document, "c")

	hs.press(indexData(prefixMediaDel, 1))
	assert.Equal(t, []post.MediaItem{{Kind: post.Photo, Ref: "a"}, {Kind: post.Document, Ref: "c"}}, hs.session().Draft.Media)

	hs.press(indexData(prefixMediaDel, 5))
	assert.Len(t, hs.session().Draft.Media, 2)
}

func TestTextIsRejectedInMediaState(t *testing.T) {
	hs := newHarness(t)
	hs.press(cbCreate)
	hs.send("text")
	hs.send("not media")
	assert.Equal(t, StateMedia, hs.state())
	assert.Contains(t, hs.bot.LastReply().Text, "not a photo")
}

func TestEditFromDecisionReturnsToDecision(t *testing.T) {
	hs := newHarness(t)
	hs.compose("first", nil, "")

	hs.press(cbEditMed)
	assert.True(t, hs.session().EditingFromSchedule)
	hs.attach(post.Photo, "p1")
	hs.press(cbMediaDone)
	s := hs.session()
	assert.Equal(t, StateScheduleDecision, s.State)
	assert.False(t, s.EditingFromSchedule)
	assert.Len(t, s.Draft.Media, 1)

	hs.press(cbEditText)
	hs.send("second")
	s = hs.session()
	assert.Equal(t, StateScheduleDecision, s.State)
	assert.Equal(t, "second", s.Draft.Text)
	assert.False(t, s.EditingFromSchedule)

	hs.press(cbEditBtn)
	hs.send("Go - https://example.com")
	hs.press(cbButtonsDone)
	assert.Equal(t, StateScheduleDecision, hs.state())
}

func TestToggleLayout(t *testing.T) {
	hs := newHarness(t)
	hs.compose("x", nil, "")
	hs.press(cbLayout)
	assert.Equal(t, post.PhotoBottom, hs.session().Draft.Layout)
	hs.press(cbLayout)
	assert.Equal(t, post.PhotoTop, hs.session().Draft.Layout)
}

func TestPreviewGoesToAdminOnly(t *testing.T) {
	hs := newHarness(t)
	hs.compose("preview me", nil, "")
	hs.press(cbPreview)

	assert.Len(t, hs.bot.SendsTo("42"), 1)
	assert.Empty(t, hs.bot.SendsTo(channelID))
	assert.Equal(t, StateScheduleDecision, hs.state())
}

func TestCancelDiscardsDraft(t *testing.T) {
	hs := newHarness(t)
	hs.press(cbCreate)
	hs.send("text")
	hs.command("cancel")

	s := hs.session()
	assert.Equal(t, StateMainMenu, s.State)
	assert.Nil(t, s.Draft)
}

func TestCalendarNavigationEditsInPlace(t *testing.T) {
	hs := newHarness(t)
	hs.compose("x", nil, "")
	hs.press(cbSchedule)
	assert.Equal(t, StateCalendar, hs.state())

	hs.press("cal:n:2026-03")
	last := hs.bot.LastReply()
	assert.True(t, last.Edited)
	assert.True(t, platformtest.HasButton(last.Keyboard, "cal:d:2026-04-01"))
	assert.Equal(t, StateCalendar, hs.state())
	assert.Equal(t, "x", hs.session().Draft.Text, "navigation leaves the draft alone")
}

func TestScheduleRejectsBadAndPastTimes(t *testing.T) {
	hs := newHarness(t)
	hs.compose("later", nil, "")
	hs.press(cbSchedule)
	hs.press("cal:d:2026-03-10")
	assert.Equal(t, StateAwaitingTime, hs.state())

	hs.send("25:00")
	assert.Equal(t, StateAwaitingTime, hs.state())
	hs.send("12:00")
	assert.Equal(t, StateAwaitingTime, hs.state(), "now is not strictly in the future")
	assert.Contains(t, hs.bot.LastReply().Text, "already passed")

	hs.send("12:01")
	assert.Equal(t, StateChannelSelect, hs.state())
}

func TestScheduleCommitsPostAndJob(t *testing.T) {
	hs := newHarness(t)
	hs.compose("later", []post.MediaItem{{Kind: post.Photo, Ref: "p1"}}, "Go - https://example.com")
	hs.scheduleAt("2026-03-11", "09:30")
	hs.press(prefixChannel + "fect")

	assert.Empty(t, hs.bot.Sends, "a scheduled post is not sent on commit")
	posts, err := hs.db.ListScheduledByOwner(admin)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	p := posts[0]
	assert.Equal(t, "-100456", p.ChannelID)
	assert.True(t, p.PublishAt.Equal(time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, "later", p.Text)
	assert.Len(t, p.Media, 1)
	assert.Len(t, p.Buttons, 1)

	j, err := hs.db.GetJob(p.JobID)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, StateMainMenu, hs.state())
}

func scheduledPost(t *testing.T, hs *harness) *store.ScheduledPost {
	t.Helper()
	hs.compose("original", nil, "")
	hs.scheduleAt("2026-03-11", "09:30")
	hs.press(prefixChannel + "electronics")
	posts, err := hs.db.ListScheduledByOwner(admin)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	return &posts[0]
}

func TestEditScheduledReplacesJob(t *testing.T) {
	hs := newHarness(t)
	p := scheduledPost(t, hs)

	hs.press(idData(prefixSchedEdit, p.ID))
	s := hs.session()
	assert.Equal(t, StateScheduledEdit, s.State)
	assert.Equal(t, p.ID, s.EditingScheduledID)
	assert.Equal(t, "electronics", s.Draft.Channel)

	hs.press(cbEditText)
	hs.send("edited")
	assert.Equal(t, StateScheduledEdit, hs.state())
	hs.press(cbSave)

	got, err := hs.db.GetScheduled(p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "edited", got.Text)
	assert.NotEqual(t, p.JobID, got.JobID)
	assert.True(t, got.PublishAt.Equal(p.PublishAt))

	old, err := hs.db.GetJob(p.JobID)
	require.NoError(t, err)
	assert.Nil(t, old, "old timer cancelled")
	j, err := hs.db.GetJob(got.JobID)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.True(t, j.RunAt.Equal(p.PublishAt))
}

func TestEditScheduledTimeAndBack(t *testing.T) {
	hs := newHarness(t)
	p := scheduledPost(t, hs)

	hs.press(idData(prefixSchedEdit, p.ID))
	hs.scheduleAt("2026-03-12", "18:00")
	assert.Equal(t, StateScheduledEdit, hs.state())
	hs.press(cbBack)

	got, err := hs.db.GetScheduled(p.ID)
	require.NoError(t, err)
	assert.True(t, got.PublishAt.Equal(p.PublishAt), "back discards changes")
	assert.Equal(t, p.JobID, got.JobID)

	hs.press(idData(prefixSchedEdit, p.ID))
	hs.scheduleAt("2026-03-12", "18:00")
	hs.press(cbSave)
	got, err = hs.db.GetScheduled(p.ID)
	require.NoError(t, err)
	assert.True(t, got.PublishAt.Equal(time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC)))
}

func TestPublishScheduledNow(t *testing.T) {
	hs := newHarness(t)
	p := scheduledPost(t, hs)

	hs.press(idData(prefixSchedNow, p.ID))

	assert.Len(t, hs.bot.SendsTo(channelID), 1)
	got, err := hs.db.GetScheduled(p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	j, err := hs.db.GetJob(p.JobID)
	require.NoError(t, err)
	assert.Nil(t, j)
	assert.Contains(t, hs.bot.LastReply().Text, "Published")

	hs.press(idData(prefixSchedNow, p.ID))
	assert.Len(t, hs.bot.SendsTo(channelID), 1, "published exactly once")
	assert.Contains(t, hs.bot.LastReply().Text, "not found")
}

func TestPublishScheduledNowFailureKeepsPost(t *testing.T) {
	hs := newHarness(t)
	p := scheduledPost(t, hs)
	hs.bot.FailSend = func(int, platform.Outbound) error { return errors.New("chat not found") }

	hs.press(idData(prefixSchedNow, p.ID))
	got, err := hs.db.GetScheduled(p.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Contains(t, hs.bot.LastReply().Text, "stays scheduled")
}

func TestDeleteScheduled(t *testing.T) {
	hs := newHarness(t)
	p := scheduledPost(t, hs)

	hs.press(idData(prefixSchedDel, p.ID))
	got, err := hs.db.GetScheduled(p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	n, err := hs.db.CountJobs()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScheduledListShowsOwnPosts(t *testing.T) {
	hs := newHarness(t)
	scheduledPost(t, hs)
	hs.bot.Reset()

	hs.press(cbScheduled)
	require.Len(t, hs.bot.Replies, 1)
	assert.Contains(t, hs.bot.Replies[0].Text, "original")
	assert.Contains(t, hs.bot.Replies[0].Text, "Electronics")
}

func TestFireScheduledNotifiesOwner(t *testing.T) {
	hs := newHarness(t)
	p := scheduledPost(t, hs)
	hs.bot.Reset()

	require.NoError(t, hs.h.FireScheduled(context.Background(), p))
	assert.Len(t, hs.bot.SendsTo(channelID), 1)
	last := hs.bot.LastReply()
	assert.Equal(t, admin, last.ChatID)
	assert.Contains(t, last.Text, "Published")
	recs, err := hs.db.ListPublishedByOwner(admin, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestFireScheduledFailureNotifiesOwner(t *testing.T) {
	hs := newHarness(t)
	p := scheduledPost(t, hs)
	hs.bot.FailSend = func(int, platform.Outbound) error { return errors.New("bot was kicked") }

	err := hs.h.FireScheduled(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, hs.bot.LastReply().Text, "could not be published")
}

func publishHello(t *testing.T, hs *harness) *store.PublishedPost {
	t.Helper()
	hs.compose("Hello", nil, "Go - https://example.com")
	hs.press(cbSendNow)
	hs.press(prefixChannel + "electronics")
	recs, err := hs.db.ListPublishedByOwner(admin, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	return &recs[0]
}

func TestEditPublishedText(t *testing.T) {
	hs := newHarness(t)
	rec := publishHello(t, hs)

	hs.press(publishedData(prefixPubEdit, "electronics", rec.MessageID))
	assert.Equal(t, StatePublishedEdit, hs.state())
	hs.press(cbPubText)
	hs.send("Hello again")

	require.Len(t, hs.bot.Edits, 1)
	assert.Equal(t, rec.TextMessageID, hs.bot.Edits[0].MessageID)
	got, err := hs.db.GetPublished(channelID, rec.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "Hello again", got.Text)
	assert.Equal(t, StatePublishedEdit, hs.state())
}

func TestEditPublishedTextRemoteFailure(t *testing.T) {
	hs := newHarness(t)
	rec := publishHello(t, hs)
	hs.bot.FailEdit = errors.New("message is too old")

	hs.press(publishedData(prefixPubEdit, "electronics", rec.MessageID))
	hs.press(cbPubText)
	hs.send("Hello again")

	got, err := hs.db.GetPublished(channelID, rec.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "Hello again", got.Text, "local record is updated")
	found := false
	for _, r := range hs.bot.Replies {
		if strings.Contains(r.Text, "could not be updated") {
			found = true
		}
	}
	assert.True(t, found, "admin is told the channel copy is stale")
}

func TestEditPublishedButtons(t *testing.T) {
	hs := newHarness(t)
	rec := publishHello(t, hs)

	hs.press(publishedData(prefixPubEdit, "electronics", rec.MessageID))
	hs.press(cbPubButtons)
	hs.send("Docs | https://docs.example.com")

	require.Len(t, hs.bot.KBEdits, 1)
	assert.Equal(t, rec.ButtonsMessageID, hs.bot.KBEdits[0].MessageID)
	got, err := hs.db.GetPublished(channelID, rec.MessageID)
	require.NoError(t, err)
	assert.Equal(t, []post.Button{{Label: "Docs", URL: "https://docs.example.com"}}, got.Buttons)

	hs.press(cbPubButtons)
	hs.press(cbPubClear)
	got, err = hs.db.GetPublished(channelID, rec.MessageID)
	require.NoError(t, err)
	assert.Empty(t, got.Buttons)
}

func TestDeletePublishedNeedsConfirmation(t *testing.T) {
	hs := newHarness(t)
	rec := publishHello(t, hs)

	hs.press(publishedData(prefixPubDelete, "electronics", rec.MessageID))
	assert.Equal(t, StatePublishedDeleteConfirm, hs.state())
	assert.Empty(t, hs.bot.Deletes)

	hs.press(cbDeleteDecline)
	assert.Empty(t, hs.bot.Deletes)
	got, _ := hs.db.GetPublished(channelID, rec.MessageID)
	assert.NotNil(t, got)

	hs.press(publishedData(prefixPubDelete, "electronics", rec.MessageID))
	hs.press(publishedData(prefixPubConfirm, "electronics", rec.MessageID))
	assert.Equal(t, []string{rec.MessageID}, hs.bot.Deletes)
	got, _ = hs.db.GetPublished(channelID, rec.MessageID)
	assert.Nil(t, got)
	assert.Equal(t, StateMainMenu, hs.state())
}

func TestMissingPublishedPost(t *testing.T) {
	hs := newHarness(t)
	hs.press(publishedData(prefixPubEdit, "electronics", "999"))
	assert.Contains(t, hs.bot.LastReply().Text, "not found")
	assert.Equal(t, StateMainMenu, hs.state())
}

func TestUnauthorizedUser(t *testing.T) {
	hs := newHarness(t)
	hs.handle(platform.Update{UserID: 7, Command: "start"})

	assert.Contains(t, hs.bot.LastReply().Text, "not allowed")
	s, err := hs.sessions.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestImageDocumentBecomesPhoto(t *testing.T) {
	hs := newHarness(t)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	hs.bot.Files["doc-1"] = buf.Bytes()
	hs.bot.Files["doc-2"] = []byte("%PDF-1.4 not an image")

	hs.press(cbCreate)
	hs.send("pics")
	hs.handle(platform.Update{Media: &platform.Media{Kind: post.Document, Ref: "doc-1", FileName: "shot.png", MIME: "image/png"}})
	hs.handle(platform.Update{Media: &platform.Media{Kind: post.Document, Ref: "doc-2", FileName: "broken.jpg"}})

	media := hs.session().Draft.Media
	require.Len(t, media, 2)
	assert.Equal(t, post.MediaItem{Kind: post.Photo, Ref: "photo-1"}, media[0])
	assert.Equal(t, post.MediaItem{Kind: post.Document, Ref: "doc-2"}, media[1], "failed conversion keeps the document")
	assert.Len(t, hs.bot.Uploads, 1)
	assert.Len(t, hs.bot.Deletes, 1, "temporary upload is removed")
}

func TestExpiredDraftReturnsToMenu(t *testing.T) {
	hs := newHarness(t)
	require.NoError(t, hs.sessions.Put(context.Background(), &sessionstore.Session{UserID: admin, State: StateMedia}))

	hs.press(cbMediaDone)
	assert.Equal(t, StateMainMenu, hs.state())
	assert.Contains(t, hs.bot.LastReply().Text, "expired")
}

func TestStaleCallbackIsIgnored(t *testing.T) {
	hs := newHarness(t)
	hs.press(cbMediaDone)
	assert.Equal(t, StateMainMenu, hs.state())
	assert.Equal(t, []string{"cb"}, hs.bot.Answers)
}

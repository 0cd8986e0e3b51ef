package store

import (
	"time"

	"github.com/matheus3301/postbot/internal/post"
)

// Scheduled post statuses.
const (
	StatusPending = "pending"
	StatusFailed  = "failed"
)

// Job states.
const (
	JobQueued = "queued"
	JobFiring = "firing"
)

// ScheduledPost is a post waiting for its publish time.
type ScheduledPost struct {
	ID        int64
	OwnerID   int64
	Text      string
	Media     []post.MediaItem
	Buttons   []post.Button
	Layout    post.Layout
	PublishAt time.Time
	ChannelID string
	JobID     string
	Status    string
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Draft returns an editable copy of the post.
func (p *ScheduledPost) Draft() *post.Draft {
	at := p.PublishAt
	d := &post.Draft{
		Text:        p.Text,
		Layout:      p.Layout,
		ScheduledAt: &at,
		Channel:     p.ChannelID,
	}
	return withContent(d, p.Media, p.Buttons)
}

// MediaKind summarizes the media list.
func (p *ScheduledPost) MediaKind() string {
	return post.SummarizeKinds(p.Media)
}

// NewScheduledPost builds a record from a committed draft.
func NewScheduledPost(ownerID int64, d *post.Draft, channelID string, publishAt time.Time) *ScheduledPost {
	c := d.Clone()
	return &ScheduledPost{
		OwnerID:   ownerID,
		Text:      c.Text,
		Media:     c.Media,
		Buttons:   c.Buttons,
		Layout:    c.EffectiveLayout(),
		PublishAt: publishAt,
		ChannelID: channelID,
		Status:    StatusPending,
	}
}

// ApplyDraft copies the editable fields of d onto the record.
func (p *ScheduledPost) ApplyDraft(d *post.Draft) {
	c := d.Clone()
	p.Text = c.Text
	p.Media = c.Media
	p.Buttons = c.Buttons
	p.Layout = c.EffectiveLayout()
	if c.ScheduledAt != nil {
		p.PublishAt = *c.ScheduledAt
	}
}

// Job is the timer registered for a scheduled post.
type Job struct {
	ID        string
	PostID    int64
	RunAt     time.Time
	State     string
	Attempts  int
	CreatedAt time.Time
}

// PublishedPost records a post that went out to a channel. MessageID is the
// first message sent; TextMessageID and ButtonsMessageID point at the
// messages carrying the text and the inline keyboard.
type PublishedPost struct {
	OwnerID          int64
	ChannelID        string
	MessageID        string
	Text             string
	Media            []post.MediaItem
	Buttons          []post.Button
	Layout           post.Layout
	TextMessageID    string
	TextIsCaption    bool
	ButtonsMessageID string
	MessageIDs       []string
	PublishedAt      time.Time
	UpdatedAt        time.Time
}

// Draft returns an editable copy of the published content.
func (p *PublishedPost) Draft() *post.Draft {
	d := &post.Draft{Text: p.Text, Layout: p.Layout, Channel: p.ChannelID}
	return withContent(d, p.Media, p.Buttons)
}

// MediaKind summarizes the media list.
func (p *PublishedPost) MediaKind() string {
	return post.SummarizeKinds(p.Media)
}

func withContent(d *post.Draft, media []post.MediaItem, buttons []post.Button) *post.Draft {
	if len(media) > 0 {
		d.Media = append([]post.MediaItem(nil), media...)
	}
	if len(buttons) > 0 {
		d.Buttons = append([]post.Button(nil), buttons...)
	}
	if d.Layout == "" {
		d.Layout = post.PhotoTop
	}
	return d
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

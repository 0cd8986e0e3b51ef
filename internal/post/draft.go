// Package post holds the channel post model shared by the composer, the
// stores and the dispatcher: the Draft and the editors that mutate it.
package post

import (
	"slices"
	"time"
)

// MediaKind is the type of an attached media item.
type MediaKind string

const (
	Photo    MediaKind = "photo"
	Video    MediaKind = "video"
	Document MediaKind = "document"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	return k == Photo || k == Video || k == Document
}

// MediaItem is one attachment. Ref is an opaque platform file reference
// or, for fetched article images, an absolute URL.
type MediaItem struct {
	Kind MediaKind `json:"kind"`
	Ref  string    `json:"ref"`
}

// Button is an inline link button rendered on its own row.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Layout controls whether media is shown before or after the text.
type Layout string

const (
	PhotoTop    Layout = "photo_top"
	PhotoBottom Layout = "photo_bottom"
)

// Summary values for a media list.
const (
	KindNone  = "none"
	KindMixed = "mixed"
)

// Draft is a post being composed or edited. Text holds normalized HTML.
type Draft struct {
	Text        string      `json:"text,omitempty"`
	Media       []MediaItem `json:"media,omitempty"`
	Buttons     []Button    `json:"buttons,omitempty"`
	Layout      Layout      `json:"layout,omitempty"`
	ScheduledAt *time.Time  `json:"scheduled_at,omitempty"`
	Channel     string      `json:"channel,omitempty"`
}

// New returns an empty draft with the default layout.
func New() *Draft {
	return &Draft{Layout: PhotoTop}
}

// EffectiveLayout returns the layout, treating the zero value as PhotoTop.
func (d *Draft) EffectiveLayout() Layout {
	if d.Layout == PhotoBottom {
		return PhotoBottom
	}
	return PhotoTop
}

// ToggleLayout flips between PhotoTop and PhotoBottom and returns the new value.
func (d *Draft) ToggleLayout() Layout {
	if d.EffectiveLayout() == PhotoTop {
		d.Layout = PhotoBottom
	} else {
		d.Layout = PhotoTop
	}
	return d.Layout
}

// AddMedia appends an item.
func (d *Draft) AddMedia(item MediaItem) {
	d.Media = append(d.Media, item)
}

// RemoveMedia deletes the item at index i, keeping the order of the rest.
// It reports false when i is out of range.
func (d *Draft) RemoveMedia(i int) bool {
	if i < 0 || i >= len(d.Media) {
		return false
	}
	d.Media = slices.Delete(d.Media, i, i+1)
	return true
}

// AddButtons appends buttons in order.
func (d *Draft) AddButtons(bs []Button) {
	d.Buttons = append(d.Buttons, bs...)
}

// RemoveButton deletes the button at index i.
func (d *Draft) RemoveButton(i int) bool {
	if i < 0 || i >= len(d.Buttons) {
		return false
	}
	d.Buttons = slices.Delete(d.Buttons, i, i+1)
	return true
}

// MediaKindSummary returns the single kind shared by all items, KindNone
// for no media, or KindMixed.
func (d *Draft) MediaKindSummary() string {
	return SummarizeKinds(d.Media)
}

// Photos returns the photo items in order.
func (d *Draft) Photos() []MediaItem {
	var out []MediaItem
	for _, m := range d.Media {
		if m.Kind == Photo {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy.
func (d *Draft) Clone() *Draft {
	c := *d
	c.Media = slices.Clone(d.Media)
	c.Buttons = slices.Clone(d.Buttons)
	if d.ScheduledAt != nil {
		t := *d.ScheduledAt
		c.ScheduledAt = &t
	}
	return &c
}

// SummarizeKinds computes the media_kind column value for a media list.
func SummarizeKinds(items []MediaItem) string {
	if len(items) == 0 {
		return KindNone
	}
	kind := items[0].Kind
	for _, m := range items[1:] {
		if m.Kind != kind {
			return KindMixed
		}
	}
	return string(kind)
}

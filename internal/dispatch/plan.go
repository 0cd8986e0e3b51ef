package dispatch

import (
	"github.com/matheus3301/postbot/internal/markup"
	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/post"
)

const (
	// CaptionLimit is the longest caption a media message accepts.
	CaptionLimit = 1024
	// GroupLimit is the most photos one grouped message holds.
	GroupLimit = 10
	// ButtonsOnlyText is the body of the trailing message that carries the
	// keyboard when no other message can.
	ButtonsOnlyText = "🔗"
)

// Plan renders a draft into the ordered messages that make up the post.
// It has no side effects.
func Plan(d *post.Draft) []platform.Outbound {
	kb := platform.URLRows(d.Buttons)
	layout := d.EffectiveLayout()

	switch len(d.Media) {
	case 0:
		return []platform.Outbound{planText(d.Text, layout, kb)}
	case 1:
		return planSingle(d.Text, d.Media[0], layout, kb)
	default:
		return planMany(d, layout, kb)
	}
}

func planText(text string, layout post.Layout, kb platform.Keyboard) platform.Outbound {
	preview := platform.PreviewDisabled
	if markup.HasURL(text) {
		preview = platform.PreviewAbove
		if layout == post.PhotoBottom {
			preview = platform.PreviewBelow
		}
	}
	return platform.Outbound{
		Kind:        platform.KindText,
		Text:        text,
		Keyboard:    kb,
		Preview:     preview,
		CarriesText: true,
	}
}

func planSingle(text string, m post.MediaItem, layout post.Layout, kb platform.Keyboard) []platform.Outbound {
	media := platform.Outbound{Kind: platform.KindOf(m.Kind), Media: []post.MediaItem{m}}

	if text == "" {
		media.Keyboard = kb
		return []platform.Outbound{media}
	}
	if layout == post.PhotoTop && markup.VisibleLen(text) <= CaptionLimit {
		media.Text = text
		media.Keyboard = kb
		media.CarriesText = true
		return []platform.Outbound{media}
	}

	media.Keyboard = kb
	return []platform.Outbound{detachedText(text), media}
}

// detachedText is the text message sent ahead of media that cannot carry
// it. Links are removed so no preview competes with the media.
func detachedText(text string) platform.Outbound {
	return platform.Outbound{
		Kind:        platform.KindText,
		Text:        BodyText(text, true),
		Preview:     platform.PreviewDisabled,
		CarriesText: true,
	}
}

// BodyText is the text as it appears in the channel: when it is sent apart
// from its media, links are stripped unless nothing would remain.
func BodyText(text string, detached bool) string {
	if !detached {
		return text
	}
	if stripped := markup.StripURLs(text); stripped != "" {
		return stripped
	}
	return text
}

func planMany(d *post.Draft, layout post.Layout, kb platform.Keyboard) []platform.Outbound {
	var out []platform.Outbound

	caption := d.Text
	if caption != "" && (layout == post.PhotoBottom || markup.VisibleLen(caption) > CaptionLimit) {
		out = append(out, detachedText(caption))
		caption = ""
	}

	var photos, others []post.MediaItem
	for _, m := range d.Media {
		if m.Kind == post.Photo {
			photos = append(photos, m)
		} else {
			others = append(others, m)
		}
	}

	for chunk := range chunks(photos, GroupLimit) {
		o := platform.Outbound{Kind: platform.KindGroup, Media: chunk}
		if len(chunk) == 1 {
			o.Kind = platform.KindPhoto
		}
		if caption != "" {
			o.Text = caption
			o.CarriesText = true
			caption = ""
		}
		out = append(out, o)
	}
	for _, m := range others {
		o := platform.Outbound{Kind: platform.KindOf(m.Kind), Media: []post.MediaItem{m}}
		if caption != "" {
			o.Text = caption
			o.CarriesText = true
			caption = ""
		}
		out = append(out, o)
	}

	if len(kb) == 0 {
		return out
	}
	if len(out) == 1 && out[0].Kind != platform.KindGroup {
		out[0].Keyboard = kb
		return out
	}
	return append(out, platform.Outbound{
		Kind:     platform.KindText,
		Text:     ButtonsOnlyText,
		Keyboard: kb,
		Preview:  platform.PreviewDisabled,
	})
}

func chunks(items []post.MediaItem, size int) func(yield func([]post.MediaItem) bool) {
	return func(yield func([]post.MediaItem) bool) {
		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))
			if !yield(items[start:end]) {
				return
			}
		}
	}
}

// textCarrier returns the planned message holding the text, if any.
func textCarrier(plan []platform.Outbound) (int, bool) {
	for i, o := range plan {
		if o.CarriesText {
			return i, true
		}
	}
	return 0, false
}

// keyboardCarrier returns the planned message holding the keyboard, if any.
func keyboardCarrier(plan []platform.Outbound) (int, bool) {
	for i, o := range plan {
		if len(o.Keyboard) > 0 {
			return i, true
		}
	}
	return 0, false
}

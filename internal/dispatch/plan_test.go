package dispatch

import (
	"strings"
	"testing"

	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/post"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func photo(ref string) post.MediaItem { return post.MediaItem{Kind: post.Photo, Ref: ref} }

func kinds(plan []platform.Outbound) []platform.Kind {
	out := make([]platform.Kind, len(plan))
	for i, o := range plan {
		out[i] = o.Kind
	}
	return out
}

func TestPlanTextOnly(t *testing.T) {
	d := &post.Draft{Text: "Hello", Buttons: []post.Button{{Label: "Go", URL: "https://example.com"}}}
	plan := Plan(d)

	require.Len(t, plan, 1)
	assert.Equal(t, platform.KindText, plan[0].Kind)
	assert.Equal(t, "Hello", plan[0].Text)
	assert.Equal(t, platform.PreviewDisabled, plan[0].Preview)
	require.Len(t, plan[0].Keyboard, 1)
	assert.Equal(t, "Go", plan[0].Keyboard[0][0].Text)
	assert.True(t, plan[0].CarriesText)
}

func TestPlanTextPreviewFollowsLayout(t *testing.T) {
	d := &post.Draft{Text: "Read https://example.com/a"}
	assert.Equal(t, platform.PreviewAbove, Plan(d)[0].Preview)

	d.Layout = post.PhotoBottom
	assert.Equal(t, platform.PreviewBelow, Plan(d)[0].Preview)
}

func TestPlanSingleMediaPhotoTop(t *testing.T) {
	d := &post.Draft{
		Text:    "caption",
		Media:   []post.MediaItem{{Kind: post.Video, Ref: "v1"}},
		Buttons: []post.Button{{Label: "Go", URL: "https://example.com"}},
	}
	plan := Plan(d)

	require.Len(t, plan, 1)
	assert.Equal(t, platform.KindVideo, plan[0].Kind)
	assert.Equal(t, "caption", plan[0].Text)
	assert.NotEmpty(t, plan[0].Keyboard)
}

func TestPlanSingleMediaPhotoBottom(t *testing.T) {
	d := &post.Draft{
		Text:    "see https://example.com/x now",
		Media:   []post.MediaItem{photo("p1")},
		Buttons: []post.Button{{Label: "Go", URL: "https://example.com"}},
		Layout:  post.PhotoBottom,
	}
	plan := Plan(d)

	require.Len(t, plan, 2)
	assert.Equal(t, []platform.Kind{platform.KindText, platform.KindPhoto}, kinds(plan))
	assert.Equal(t, "see now", plan[0].Text)
	assert.Equal(t, platform.PreviewDisabled, plan[0].Preview)
	assert.Empty(t, plan[0].Keyboard)
	assert.Empty(t, plan[1].Text)
	assert.NotEmpty(t, plan[1].Keyboard)
}

func TestPlanLongCaptionFallsBack(t *testing.T) {
	d := &post.Draft{Text: strings.Repeat("a", CaptionLimit+1), Media: []post.MediaItem{photo("p1")}}
	plan := Plan(d)

	require.Len(t, plan, 2)
	assert.Equal(t, []platform.Kind{platform.KindText, platform.KindPhoto}, kinds(plan))
	assert.True(t, plan[0].CarriesText)
	assert.False(t, plan[1].CarriesText)
}

func TestPlanMixedMedia(t *testing.T) {
	d := &post.Draft{
		Text: "caption",
		Media: []post.MediaItem{
			photo("p1"),
			{Kind: post.Document, Ref: "d1"},
			photo("p2"),
		},
		Buttons: []post.Button{{Label: "Go", URL: "https://example.com"}},
	}
	plan := Plan(d)

	require.Equal(t, []platform.Kind{platform.KindGroup, platform.KindDocument, platform.KindText}, kinds(plan))
	assert.Equal(t, []post.MediaItem{photo("p1"), photo("p2")}, plan[0].Media)
	assert.Equal(t, "caption", plan[0].Text)
	assert.Empty(t, plan[1].Text)
	assert.Equal(t, ButtonsOnlyText, plan[2].Text)
	assert.NotEmpty(t, plan[2].Keyboard)
}

func TestPlanMixedMediaWithoutButtons(t *testing.T) {
	d := &post.Draft{Media: []post.MediaItem{photo("p1"), photo("p2")}}
	plan := Plan(d)
	assert.Equal(t, []platform.Kind{platform.KindGroup}, kinds(plan))
}

func TestPlanGroupsChunkByTen(t *testing.T) {
	d := &post.Draft{Text: "many"}
	for i := range 11 {
		d.Media = append(d.Media, photo(strings.Repeat("p", i+1)))
	}
	plan := Plan(d)

	require.Equal(t, []platform.Kind{platform.KindGroup, platform.KindPhoto}, kinds(plan))
	assert.Len(t, plan[0].Media, 10)
	assert.Equal(t, "many", plan[0].Text)
	assert.Empty(t, plan[1].Text)
}

func TestPlanNonPhotosCarryCaptionWithoutPhotos(t *testing.T) {
	d := &post.Draft{
		Text:  "docs",
		Media: []post.MediaItem{{Kind: post.Document, Ref: "d1"}, {Kind: post.Video, Ref: "v1"}},
	}
	plan := Plan(d)

	require.Equal(t, []platform.Kind{platform.KindDocument, platform.KindVideo}, kinds(plan))
	assert.Equal(t, "docs", plan[0].Text)
	assert.Empty(t, plan[1].Text)
}

func TestPlanMultipleMediaPhotoBottom(t *testing.T) {
	d := &post.Draft{
		Text:   "intro",
		Media:  []post.MediaItem{photo("p1"), photo("p2")},
		Layout: post.PhotoBottom,
	}
	plan := Plan(d)

	require.Equal(t, []platform.Kind{platform.KindText, platform.KindGroup}, kinds(plan))
	assert.Empty(t, plan[1].Text)
}

func TestBodyTextKeepsLinkOnlyText(t *testing.T) {
	assert.Equal(t, "https://example.com", BodyText("https://example.com", true))
	assert.Equal(t, "a https://x.io", BodyText("a https://x.io", false))
}

package markup

import (
	"slices"
	"testing"
)

func TestFromEntities(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		entities []Entity
		want     string
	}{
		{
			name: "plain text is escaped",
			text: "a < b & c",
			want: "a &lt; b &amp; c",
		},
		{
			name:     "bold",
			text:     "Hello world",
			entities: []Entity{{Type: "bold", Offset: 0, Length: 5}},
			want:     "<b>Hello</b> world",
		},
		{
			name: "nested",
			text: "Hello world",
			entities: []Entity{
				{Type: "bold", Offset: 0, Length: 11},
				{Type: "italic", Offset: 6, Length: 5},
			},
			want: "<b>Hello <i>world</i></b>",
		},
		{
			name: "overlapping spans are split",
			text: "abcdef",
			entities: []Entity{
				{Type: "bold", Offset: 0, Length: 4},
				{Type: "italic", Offset: 2, Length: 4},
			},
			want: "<b>ab<i>cd</i></b><i>ef</i>",
		},
		{
			name:     "text link",
			text:     "see docs",
			entities: []Entity{{Type: "text_link", Offset: 4, Length: 4, URL: "https://example.com/?a=1&b=2"}},
			want:     `see <a href="https://example.com/?a=1&amp;b=2">docs</a>`,
		},
		{
			name:     "pre with language",
			text:     "x := 1",
			entities: []Entity{{Type: "pre", Offset: 0, Length: 6, Language: "go"}},
			want:     `<pre><code class="language-go">x := 1</code></pre>`,
		},
		{
			name: "utf16 offsets after emoji",
			text: "🔥 hot deal",
			// The emoji is two UTF-16 units, then a space.
			entities: []Entity{{Type: "underline", Offset: 3, Length: 3}},
			want:     "🔥 <u>hot</u> deal",
		},
		{
			name: "unsupported types stay plain",
			text: "@channel #tag",
			entities: []Entity{
				{Type: "mention", Offset: 0, Length: 8},
				{Type: "hashtag", Offset: 9, Length: 4},
			},
			want: "@channel #tag",
		},
		{
			name: "all inline styles",
			text: "bisqpc",
			entities: []Entity{
				{Type: "bold", Offset: 0, Length: 1},
				{Type: "italic", Offset: 1, Length: 1},
				{Type: "strikethrough", Offset: 2, Length: 1},
				{Type: "blockquote", Offset: 3, Length: 1},
				{Type: "spoiler", Offset: 4, Length: 1},
				{Type: "code", Offset: 5, Length: 1},
			},
			want: "<b>b</b><i>i</i><s>s</s><blockquote>q</blockquote><tg-spoiler>p</tg-spoiler><code>c</code>",
		},
		{
			name:     "span past the end is clamped",
			text:     "abc",
			entities: []Entity{{Type: "bold", Offset: 1, Length: 10}},
			want:     "a<b>bc</b>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromEntities(tt.text, tt.entities); got != tt.want {
				t.Errorf("FromEntities() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"no links here", false},
		{"read https://example.com now", true},
		{"visit www.example.com", true},
		{`<a href="https://example.com">label</a>`, true},
		{"<b>bold</b> only", false},
	}
	for _, tt := range tests {
		if got := HasURL(tt.in); got != tt.want {
			t.Errorf("HasURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLinks(t *testing.T) {
	in := `<a href="https://a.example.com/?x=1&amp;y=2">A</a> and https://b.example.com/path.`
	got := Links(in)
	want := []string{"https://a.example.com/?x=1&y=2", "https://b.example.com/path"}
	if !slices.Equal(got, want) {
		t.Errorf("Links() = %q, want %q", got, want)
	}
}

func TestStripURLs(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Read more: https://example.com/article", "Read more:"},
		{"<b>New</b> https://example.com post", "<b>New</b> post"},
		{`See <a href="https://example.com">the docs</a>`, "See the docs"},
		{"line one https://x.example.com\nline two", "line one\nline two"},
	}
	for _, tt := range tests {
		if got := StripURLs(tt.in); got != tt.want {
			t.Errorf("StripURLs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToPlainAndVisibleLen(t *testing.T) {
	in := "<b>a &amp; b</b> 🔥"
	if got := ToPlain(in); got != "a & b 🔥" {
		t.Errorf("ToPlain() = %q", got)
	}
	if got := VisibleLen(in); got != 8 {
		t.Errorf("VisibleLen() = %d, want 8", got)
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("<b>Hello</b>\n  world", 20); got != "Hello world" {
		t.Errorf("Excerpt() = %q", got)
	}
	if got := Excerpt("abcdef", 3); got != "abc…" {
		t.Errorf("Excerpt() = %q, want abc…", got)
	}
}

func TestToWhatsApp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<b>Sale</b> <i>today</i> <s>old</s>", "*Sale* _today_ ~old~"},
		{`<a href="https://example.com">shop</a>`, "shop (https://example.com)"},
		{`<a href="https://example.com">https://example.com</a>`, "https://example.com"},
		{`<pre><code class="language-go">x := 1</code></pre>`, "```x := 1```"},
		{"<u>under</u> &lt;tag&gt;", "under <tag>"},
	}
	for _, tt := range tests {
		if got := ToWhatsApp(tt.in); got != tt.want {
			t.Errorf("ToWhatsApp(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

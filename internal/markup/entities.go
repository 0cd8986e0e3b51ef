// Package markup normalizes inbound rich text to the HTML subset accepted
// by channel posts and converts it for other outputs.
package markup

import (
	"slices"
	"strings"
	"unicode/utf16"
)

// Entity is a formatting span over a message text. Offset and Length are
// counted in UTF-16 code units.
type Entity struct {
	Type     string
	Offset   int
	Length   int
	URL      string
	Language string
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// Escape escapes text for inclusion in an HTML body.
func Escape(s string) string {
	return textEscaper.Replace(s)
}

type span struct {
	start, end int
	open       string
	close      string
}

func tagsFor(e Entity) (string, string, bool) {
	switch e.Type {
	case "bold":
		return "<b>", "</b>", true
	case "italic":
		return "<i>", "</i>", true
	case "underline":
		return "<u>", "</u>", true
	case "strikethrough":
		return "<s>", "</s>", true
	case "spoiler":
		return "<tg-spoiler>", "</tg-spoiler>", true
	case "blockquote":
		return "<blockquote>", "</blockquote>", true
	case "expandable_blockquote":
		return "<blockquote expandable>", "</blockquote>", true
	case "code":
		return "<code>", "</code>", true
	case "pre":
		if e.Language != "" {
			return `<pre><code class="language-` + attrEscaper.Replace(e.Language) + `">`, "</code></pre>", true
		}
		return "<pre>", "</pre>", true
	case "text_link":
		if e.URL == "" {
			return "", "", false
		}
		return `<a href="` + attrEscaper.Replace(e.URL) + `">`, "</a>", true
	}
	return "", "", false
}

// FromEntities renders text with its formatting spans as HTML. Unsupported
// entity types are kept as plain text; overlapping spans are split so the
// output is always well nested.
func FromEntities(text string, entities []Entity) string {
	units := utf16.Encode([]rune(text))
	n := len(units)

	var spans []span
	boundaries := []int{0, n}
	for _, e := range entities {
		open, closeTag, ok := tagsFor(e)
		if !ok {
			continue
		}
		start := max(e.Offset, 0)
		end := min(e.Offset+e.Length, n)
		if start >= end {
			continue
		}
		spans = append(spans, span{start: start, end: end, open: open, close: closeTag})
		boundaries = append(boundaries, start, end)
	}
	if len(spans) == 0 {
		return Escape(text)
	}

	slices.SortStableFunc(spans, func(a, b span) int {
		if a.start != b.start {
			return a.start - b.start
		}
		return b.end - a.end
	})
	slices.Sort(boundaries)
	boundaries = slices.Compact(boundaries)

	var b strings.Builder
	var stack []span
	next := 0
	for i, pos := range boundaries {
		// Close everything that ends here, reopening spans that were only
		// popped because they sat above a closing one.
		var reopen []span
		for endsAt(stack, pos) {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			b.WriteString(top.close)
			if top.end != pos {
				reopen = append(reopen, top)
			}
		}
		for j := len(reopen) - 1; j >= 0; j-- {
			stack = append(stack, reopen[j])
			b.WriteString(reopen[j].open)
		}

		for next < len(spans) && spans[next].start == pos {
			stack = append(stack, spans[next])
			b.WriteString(spans[next].open)
			next++
		}

		if i+1 < len(boundaries) {
			segment := string(utf16.Decode(units[pos:boundaries[i+1]]))
			b.WriteString(Escape(segment))
		}
	}
	return b.String()
}

func endsAt(stack []span, pos int) bool {
	for _, s := range stack {
		if s.end == pos {
			return true
		}
	}
	return false
}

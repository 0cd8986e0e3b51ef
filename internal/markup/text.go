package markup

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf16"
)

var (
	bareURLRe  = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"']+`)
	anchorRe   = regexp.MustCompile(`(?is)<a\s+href="([^"]*)"[^>]*>(.*?)</a>`)
	tagRe      = regexp.MustCompile(`<[^>]+>`)
	spacesRe   = regexp.MustCompile(`[ \t]{2,}`)
	trailingRe = regexp.MustCompile(`[ \t]+\n`)
	preOpenRe  = regexp.MustCompile(`<pre>(?:<code[^>]*>)?`)
	preCloseRe = regexp.MustCompile(`(?:</code>)?</pre>`)
)

// HasURL reports whether the HTML text contains a bare URL or a link.
func HasURL(s string) bool {
	return anchorRe.MatchString(s) || bareURLRe.MatchString(tagRe.ReplaceAllString(s, " "))
}

// Links returns the link targets in order of appearance, unescaped.
func Links(s string) []string {
	var out []string
	for _, m := range anchorRe.FindAllStringSubmatch(s, -1) {
		out = append(out, html.UnescapeString(m[1]))
	}
	body := anchorRe.ReplaceAllString(s, " ")
	body = tagRe.ReplaceAllString(body, " ")
	for _, u := range bareURLRe.FindAllString(body, -1) {
		out = append(out, html.UnescapeString(strings.TrimRight(u, ".,;:!?)")))
	}
	return out
}

// StripURLs removes bare URLs and unwraps links, keeping their labels.
func StripURLs(s string) string {
	s = anchorRe.ReplaceAllString(s, "$2")
	parts := splitTags(s)
	for i, p := range parts {
		if !strings.HasPrefix(p, "<") {
			parts[i] = bareURLRe.ReplaceAllString(p, "")
		}
	}
	s = strings.Join(parts, "")
	s = spacesRe.ReplaceAllString(s, " ")
	s = trailingRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// splitTags splits s into alternating text and tag chunks.
func splitTags(s string) []string {
	var out []string
	last := 0
	for _, loc := range tagRe.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			out = append(out, s[last:loc[0]])
		}
		out = append(out, s[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(s) {
		out = append(out, s[last:])
	}
	return out
}

// ToPlain drops all tags and unescapes entities.
func ToPlain(s string) string {
	return html.UnescapeString(tagRe.ReplaceAllString(s, ""))
}

// VisibleLen is the rendered length in UTF-16 code units, the unit message
// length limits are counted in.
func VisibleLen(s string) int {
	return len(utf16.Encode([]rune(ToPlain(s))))
}

// Excerpt returns the first n runes of the plain text on one line.
func Excerpt(s string, n int) string {
	plain := strings.Join(strings.Fields(ToPlain(s)), " ")
	r := []rune(plain)
	if len(r) <= n {
		return plain
	}
	return string(r[:n]) + "…"
}

var whatsAppTags = strings.NewReplacer(
	"<b>", "*", "</b>", "*",
	"<strong>", "*", "</strong>", "*",
	"<i>", "_", "</i>", "_",
	"<em>", "_", "</em>", "_",
	"<s>", "~", "</s>", "~",
	"<del>", "~", "</del>", "~",
	"<code>", "`", "</code>", "`",
	"<blockquote>", "> ", "<blockquote expandable>", "> ", "</blockquote>", "",
)

// ToWhatsApp converts HTML to WhatsApp's lightweight markup. Links become
// "label (url)"; formatting WhatsApp lacks is dropped.
func ToWhatsApp(s string) string {
	s = anchorRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := anchorRe.FindStringSubmatch(m)
		href := sub[1]
		label := sub[2]
		if ToPlain(label) == html.UnescapeString(href) {
			return href
		}
		return label + " (" + href + ")"
	})
	s = preOpenRe.ReplaceAllString(s, "```")
	s = preCloseRe.ReplaceAllString(s, "```")
	s = whatsAppTags.Replace(s)
	return ToPlain(s)
}

package post

import (
	"errors"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// ErrNoButtons is returned when a submission contains no parsable line.
var ErrNoButtons = errors.New("no valid button lines")

var allowedSchemes = map[string]bool{"http": true, "https": true, "tg": true}

// ParseButtons parses one button per line in the form "Label - URL" or
// "Label | URL". Malformed lines are skipped. ErrNoButtons is returned when
// nothing parsed.
func ParseButtons(input string) ([]Button, error) {
	var out []Button
	for line := range strings.SplitSeq(input, "\n") {
		if b, ok := ParseButtonLine(line); ok {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoButtons
	}
	return out, nil
}

// ParseButtonLine splits a line on its separator: the first "|" if any,
// otherwise the first " - ", otherwise the first "-".
func ParseButtonLine(line string) (Button, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Button{}, false
	}

	var label, rawURL string
	var found bool
	for _, sep := range []string{"|", " - ", "-"} {
		if label, rawURL, found = strings.Cut(line, sep); found {
			break
		}
	}
	if !found {
		return Button{}, false
	}

	b := Button{Label: strings.TrimSpace(label), URL: strings.TrimSpace(rawURL)}
	if b.Label == "" || ValidateURL(b.URL) != nil {
		return Button{}, false
	}
	return b, true
}

// ValidateURL checks that u is an absolute http, https or tg URL.
func ValidateURL(u string) error {
	return validation.Validate(u,
		validation.Required,
		is.RequestURL,
		validation.By(func(value any) error {
			parsed, err := url.Parse(value.(string))
			if err != nil {
				return err
			}
			if !allowedSchemes[strings.ToLower(parsed.Scheme)] {
				return errors.New("must use http, https or tg scheme")
			}
			return nil
		}),
	)
}

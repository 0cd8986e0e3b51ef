package tui

import "strings"

// Command is a parsed ':' prompt entry.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses the prompt text without its leading ':'.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	name, args, _ := strings.Cut(input, " ")
	return Command{Name: canonical(strings.ToLower(name)), Args: strings.TrimSpace(args)}
}

var aliases = map[string]string{
	"s":    "scheduled",
	"sch":  "scheduled",
	"p":    "published",
	"pub":  "published",
	"h":    "help",
	"q":    "quit",
	"q!":   "quit",
	"r":    "refresh",
	"open": "post",
}

func canonical(name string) string {
	if full, ok := aliases[name]; ok {
		return full
	}
	return name
}

package tui

import "strings"

// Command represents a parsed ':' command.
type Command struct {
	Name string
	Args string
}

var commandAliases = map[string]string{
	"q":      "quit",
	"exit":   "quit",
	"h":      "help",
	"c":      "chat",
	"open":   "chat",
	"find":   "search",
	"logout": "signout",
	"r":      "refresh",
	"me":     "profile",
	"notif":  "notification",
}

// ParseCommand parses a command line without the leading ':'. Names are
// lower-cased and aliases resolved to their canonical name.
func ParseCommand(input string) Command {
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	name = strings.ToLower(name)
	if canonical, ok := commandAliases[name]; ok {
		name = canonical
	}
	return Command{Name: name, Args: strings.TrimSpace(args)}
}

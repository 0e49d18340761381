// Package bot turns chat commands into searches and sends the results back
// to the conversation.
package bot

import (
	"strings"
)

// CommandKind identifies an inbound chat command.
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandSearch
	CommandShowURL
	CommandUpdateURL
	CommandHelp
)

func (k CommandKind) String() string {
	switch k {
	case CommandSearch:
		return "search"
	case CommandShowURL:
		return "show_url"
	case CommandUpdateURL:
		return "update_url"
	case CommandHelp:
		return "help"
	default:
		return "none"
	}
}

// Command is a parsed chat message. URL is set for CommandUpdateURL when the
// message carried an https:// token.
type Command struct {
	Kind CommandKind
	URL  string
}

// ParseCommand recognises commands by keyword. Messages that match nothing
// yield CommandNone so the bot stays quiet in group chats.
func ParseCommand(text string) Command {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(text, "URL更新") || strings.HasPrefix(lower, "update"):
		return Command{Kind: CommandUpdateURL, URL: firstHTTPS(text)}
	case strings.Contains(text, "現在のURL") || strings.Contains(lower, "show current link"):
		return Command{Kind: CommandShowURL}
	case strings.Contains(text, "物件検索") || lower == "search":
		return Command{Kind: CommandSearch}
	case text == "ヘルプ" || lower == "help":
		return Command{Kind: CommandHelp}
	default:
		return Command{Kind: CommandNone}
	}
}

// firstHTTPS returns the first whitespace-separated token that starts with
// https://, or "".
func firstHTTPS(text string) string {
	for _, tok := range strings.Fields(text) {
		if strings.HasPrefix(tok, "https://") {
			return tok
		}
	}
	return ""
}

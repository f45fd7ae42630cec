package relay

import "strings"

// Recognized command names.
const (
	cmdHelp    = "/help"
	cmdBranch  = "/branch"
	cmdPentest = "/pentest"
	cmdE2E     = "/e2e"
	cmdDeploy  = "/deploy"
	cmdStatus  = "/status"
	cmdLogs    = "/logs"
)

// Command is a parsed chat command.
type Command struct {
	ChatID int64
	// Name is the lowercased command token without any @botname suffix.
	Name string
	// Args is everything after the command token, re-joined with single spaces.
	Args string
}

// ParseCommand splits text into a command token and an argument string.
func ParseCommand(chatID int64, text string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{ChatID: chatID}
	}

	name := strings.ToLower(fields[0])
	// In groups Telegram appends the bot's username: /status@my_bot
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}

	return Command{
		ChatID: chatID,
		Name:   name,
		Args:   strings.Join(fields[1:], " "),
	}
}

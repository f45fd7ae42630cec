// ghrelay - Telegram to GitHub Actions relay
//
// Long-polls a Telegram bot and turns chat commands into repository_dispatch
// events and workflow run lookups. Only chats on the allow-list are served.
package main

import (
	"fmt"
	"os"

	"github.com/immorage42/ghrelay/internal/commands"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

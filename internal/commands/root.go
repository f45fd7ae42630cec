// Package commands implements the ghrelay CLI commands.
package commands

import (
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/immorage42/ghrelay/internal/config"
)

var versionInfo struct {
	version string
	commit  string
	date    string
}

// SetVersionInfo sets version information from main (populated by goreleaser).
func SetVersionInfo(version, commit, date string) {
	versionInfo.version = version
	versionInfo.commit = commit
	versionInfo.date = date
}

// configPath is the --config persistent flag.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "ghrelay",
	Short: "Trigger GitHub Actions from Telegram",
	Long: `ghrelay long-polls a Telegram bot and turns chat commands into
GitHub Actions operations:

  /branch <name>      - set or show the branch used for dispatches
  /pentest [args]     - repository_dispatch "pentest"
  /e2e [args]         - repository_dispatch "e2e"
  /deploy [env]       - repository_dispatch "deploy" (default env: preview)
  /status [workflow]  - latest five workflow runs
  /logs [id|latest]   - link to a run's page

Running ghrelay without a subcommand starts the relay.

Configuration sources (in priority order):
  1. Command line flags
  2. Environment variables (a .env file in the working directory is loaded first)
  3. ghrelay.yaml in the working directory, or the file given with --config
  4. Defaults

Required: TELEGRAM_BOT_TOKEN, GITHUB_TOKEN, GITHUB_REPO.
Optional: ALLOWED_CHAT_IDS (comma separated; empty allows every chat),
DEFAULT_BRANCH, RELAY_STATE_FILE, RELAY_LOG_LEVEL, RELAY_METRICS_ADDR.`,
	// main.go prints the error once
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRelay,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./ghrelay.yaml)")

	addRunFlags(rootCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadDotenvBestEffort() {
	_ = godotenv.Load()
}

// Execute runs the root command.
func Execute() error {
	loadDotenvBestEffort()
	return rootCmd.Execute()
}

// loadConfig applies --config and loads the effective configuration.
func loadConfig() (*config.Config, error) {
	config.SetPath(configPath)
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "ghrelay %s\n", versionInfo.version)
	if versionInfo.commit != "" && versionInfo.commit != "none" {
		fmt.Fprintf(w, "  commit: %s\n", versionInfo.commit)
	}
	if versionInfo.date != "" && versionInfo.date != "unknown" {
		fmt.Fprintf(w, "  built:  %s\n", versionInfo.date)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/immorage42/ghrelay/internal/config"
)

// CLI flags for init command
var (
	initRepo    string
	initChatIDs string
	initBranch  string
	initForce   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a ghrelay.yaml configuration file",
	Long: `Create a configuration file for the relay.

Configuration sources (in priority order):
1. Command line flags (--repo, --chat-ids, --branch)
2. Environment variables (TELEGRAM_BOT_TOKEN, GITHUB_TOKEN, GITHUB_REPO, ALLOWED_CHAT_IDS, DEFAULT_BRANCH)
3. .env file in current directory
4. Interactive prompts (TTY mode only; tokens are read without echo)

The file is written with owner-only permissions. Use --force to overwrite
an existing file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd.OutOrStdout())
	},
}

func init() {
	initCmd.Flags().StringVar(&initRepo, "repo", "", "GitHub repository (owner/name)")
	initCmd.Flags().StringVar(&initChatIDs, "chat-ids", "", "Comma-separated chat ids allowed to send commands")
	initCmd.Flags().StringVar(&initBranch, "branch", "", "Default branch for dispatches")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

// isTTY returns true if stdin is a terminal.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func runInit(out io.Writer) error {
	config.SetPath(configPath)
	path := config.GetPath()

	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Fprintf(out, "Config already exists at %s\n", path)
		fmt.Fprintln(out, "Use --force to overwrite it.")
		return nil
	}

	cfg := config.Defaults()
	cfg.ApplyEnv()
	if initRepo != "" {
		cfg.GitHubRepo = initRepo
	}
	if initChatIDs != "" {
		cfg.AllowedChatIDs = config.SplitList(initChatIDs)
	}
	if initBranch != "" {
		cfg.DefaultBranch = initBranch
	}

	if isTTY() {
		if err := promptMissing(out, bufio.NewReader(os.Stdin), cfg); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %s\n", path)
	fmt.Fprintln(out, "Run 'ghrelay check' to verify the tokens, then 'ghrelay' to start the relay.")
	return nil
}

// promptMissing asks for every required value that is still empty.
func promptMissing(out io.Writer, reader *bufio.Reader, cfg *config.Config) error {
	var err error
	if cfg.TelegramBotToken == "" {
		if cfg.TelegramBotToken, err = promptSecret(out, "Telegram bot token: "); err != nil {
			return err
		}
	}
	if cfg.GitHubToken == "" {
		if cfg.GitHubToken, err = promptSecret(out, "GitHub token: "); err != nil {
			return err
		}
	}
	if cfg.GitHubRepo == "" {
		if cfg.GitHubRepo, err = promptForRepo(out, reader); err != nil {
			return err
		}
	}
	if len(cfg.AllowedChatIDs) == 0 {
		fmt.Fprint(out, "Allowed chat ids (comma separated, empty allows all): ")
		input, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		cfg.AllowedChatIDs = config.SplitList(input)
	}
	return nil
}

func promptSecret(out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}

func promptForRepo(out io.Writer, reader *bufio.Reader) (string, error) {
	for {
		fmt.Fprint(out, "GitHub repository (owner/name): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}

		input = strings.TrimSpace(input)
		if config.IsValidRepo(input) {
			return input, nil
		}
		fmt.Fprintln(out, "Invalid repository. Use the owner/name form, e.g. acme/widgets.")
	}
}

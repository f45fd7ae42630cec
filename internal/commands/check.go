package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/immorage42/ghrelay/internal/config"
	"github.com/immorage42/ghrelay/internal/github"
	"github.com/immorage42/ghrelay/internal/telegram"
)

const checkTimeout = 30 * time.Second

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the bot token and repository access",
	Long: `Verify the configuration against the live services:

  - Telegram: getMe with the bot token
  - GitHub: GET /repos/{repo} with the token, including push permission
    (repository_dispatch needs write access)

Exits non-zero if any check fails.

Examples:
  ghrelay check
  ghrelay check --json`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output as JSON")
}

// CheckResult is the outcome of ghrelay check.
type CheckResult struct {
	Bot           string   `json:"bot,omitempty"`
	Repo          string   `json:"repo"`
	RepoURL       string   `json:"repo_url,omitempty"`
	DefaultBranch string   `json:"repo_default_branch,omitempty"`
	CanPush       bool     `json:"can_push"`
	AllowedChats  int      `json:"allowed_chats"`
	Errors        []string `json:"errors,omitempty"`
}

// OK reports whether every check passed.
func (r *CheckResult) OK() bool {
	return len(r.Errors) == 0
}

var errCheckFailed = errors.New("check failed")

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	result := checkServices(ctx, cfg, github.New(cfg.GitHubAPIURL, cfg.GitHubRepo, cfg.GitHubToken))

	if checkJSON {
		fmt.Fprint(cmd.OutOrStdout(), marshalJSONOrFallback(result))
	} else {
		fmt.Fprint(cmd.OutOrStdout(), formatCheckOutput(result))
	}
	if !result.OK() {
		return errCheckFailed
	}
	return nil
}

func checkServices(ctx context.Context, cfg *config.Config, gh *github.Client) *CheckResult {
	result := &CheckResult{
		Repo:         cfg.GitHubRepo,
		AllowedChats: len(cfg.AllowedChatIDs),
	}

	tg, err := telegram.New(ctx, cfg.TelegramBotToken, telegram.Options{Endpoint: cfg.TelegramAPIEndpoint})
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	} else {
		result.Bot = tg.Username()
	}

	repo, err := gh.GetRepository(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("repository %s: %v", cfg.GitHubRepo, err))
		return result
	}
	result.RepoURL = repo.HTMLURL
	result.DefaultBranch = repo.DefaultBranch
	if repo.Permissions != nil {
		result.CanPush = repo.Permissions.Push || repo.Permissions.Admin
	}
	if !result.CanPush {
		result.Errors = append(result.Errors, "token lacks push access; repository_dispatch will be rejected")
	}
	return result
}

func formatCheckOutput(r *CheckResult) string {
	var sb strings.Builder

	if r.Bot != "" {
		fmt.Fprintf(&sb, "✓ Telegram bot: @%s\n", r.Bot)
	}
	if r.RepoURL != "" {
		fmt.Fprintf(&sb, "✓ Repository: %s (default branch %s)\n", r.RepoURL, r.DefaultBranch)
	}
	if r.AllowedChats == 0 {
		sb.WriteString("⚠️ No allowed chat ids: every chat can issue commands\n")
	} else {
		fmt.Fprintf(&sb, "Allowed chats: %d\n", r.AllowedChats)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&sb, "✗ %s\n", e)
	}
	return sb.String()
}

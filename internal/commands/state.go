package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/immorage42/ghrelay/internal/state"
)

var stateJSON bool

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the persisted relay state",
	Long: `Show the branch and last run id the relay has persisted.

Examples:
  ghrelay state           # Human-readable
  ghrelay state --json    # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runState,
}

func init() {
	stateCmd.Flags().BoolVar(&stateJSON, "json", false, "Output as JSON")
}

// StateResult describes the state file for display.
type StateResult struct {
	Path          string     `json:"path"`
	Exists        bool       `json:"exists"`
	ModifiedAt    *time.Time `json:"modified_at,omitempty"`
	DefaultBranch string     `json:"default_branch"`
	LastRunID     *int64     `json:"last_run_id"`
}

func runState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	result, err := inspectState(cfg.StateFile, cfg.DefaultBranch)
	if err != nil {
		return err
	}

	if stateJSON {
		fmt.Fprint(cmd.OutOrStdout(), marshalJSONOrFallback(result))
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), formatStateOutput(result, time.Now()))
	return nil
}

func inspectState(path, defaultBranch string) (*StateResult, error) {
	result := &StateResult{Path: path}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		result.Exists = true
		mod := info.ModTime()
		result.ModifiedAt = &mod
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	st, err := state.Load(path, defaultBranch)
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	result.DefaultBranch = st.DefaultBranch
	result.LastRunID = st.LastRunID
	return result, nil
}

func formatStateOutput(r *StateResult, now time.Time) string {
	var sb strings.Builder

	if r.Exists {
		fmt.Fprintf(&sb, "State file: %s (updated %s)\n", r.Path, humanize.RelTime(*r.ModifiedAt, now, "ago", "from now"))
	} else {
		fmt.Fprintf(&sb, "State file: %s (not written yet)\n", r.Path)
	}
	fmt.Fprintf(&sb, "Branch: %s\n", r.DefaultBranch)
	if r.LastRunID != nil {
		fmt.Fprintf(&sb, "Last run: %d\n", *r.LastRunID)
	} else {
		sb.WriteString("Last run: none\n")
	}
	return sb.String()
}

package relay

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/immorage42/ghrelay/internal/github"
	"github.com/immorage42/ghrelay/internal/telegram"
)

// Repository dispatch event types.
const (
	eventPentest = "pentest"
	eventE2E     = "e2e"
	eventDeploy  = "deploy"
)

// commandPayload is the client_payload of pentest and e2e dispatches.
type commandPayload struct {
	Branch  string `json:"branch"`
	Command string `json:"command"`
}

// deployPayload is the client_payload of deploy dispatches.
type deployPayload struct {
	Branch string `json:"branch"`
	Env    string `json:"env"`
}

func (r *Relay) handleHelp(ctx context.Context, cmd Command) error {
	return r.tg.SendMessage(ctx, cmd.ChatID, helpText(), telegram.ParseModeMarkdown)
}

func (r *Relay) handleBranch(ctx context.Context, cmd Command) error {
	if r.state.SetBranch(cmd.Args) {
		if err := r.saveState(); err != nil {
			return err
		}
	}
	return r.reply(ctx, cmd.ChatID, fmt.Sprintf(msgBranchFmt, r.state.DefaultBranch))
}

func (r *Relay) handlePentest(ctx context.Context, cmd Command) error {
	payload := commandPayload{
		Branch:  r.state.DefaultBranch,
		Command: orDefault(cmd.Args, defaultPentestCommand),
	}
	return r.dispatchWithReplies(ctx, cmd.ChatID, eventPentest, payload, msgPentestStarting, msgPentestDispatched)
}

func (r *Relay) handleE2E(ctx context.Context, cmd Command) error {
	payload := commandPayload{
		Branch:  r.state.DefaultBranch,
		Command: orDefault(cmd.Args, defaultE2ECommand),
	}
	return r.dispatchWithReplies(ctx, cmd.ChatID, eventE2E, payload, msgE2EStarting, msgE2EDispatched)
}

func (r *Relay) handleDeploy(ctx context.Context, cmd Command) error {
	env := orDefault(cmd.Args, defaultDeployEnv)
	payload := deployPayload{
		Branch: r.state.DefaultBranch,
		Env:    env,
	}
	return r.dispatchWithReplies(ctx, cmd.ChatID, eventDeploy, payload,
		fmt.Sprintf(msgDeployStartingFmt, env),
		fmt.Sprintf(msgDeployDoneFmt, env))
}

// dispatchWithReplies announces, fires and confirms a repository_dispatch.
// Completion of the triggered workflow is not tracked.
func (r *Relay) dispatchWithReplies(ctx context.Context, chatID int64, event string, payload any, starting, done string) error {
	if err := r.reply(ctx, chatID, starting); err != nil {
		return err
	}
	if err := r.gh.Dispatch(ctx, event, payload); err != nil {
		return err
	}
	r.metrics.dispatch(event)
	return r.reply(ctx, chatID, done)
}

func (r *Relay) handleStatus(ctx context.Context, cmd Command) error {
	list, err := r.gh.ListRuns(ctx, &github.ListRunsRequest{
		Workflow: cmd.Args,
		PerPage:  statusRunLimit,
	})
	if err != nil {
		return err
	}

	runs := list.Items()
	if len(runs) == 0 {
		return r.reply(ctx, cmd.ChatID, msgNoRunsFound)
	}
	if len(runs) > statusRunLimit {
		runs = runs[:statusRunLimit]
	}

	lines := make([]string, 0, len(runs))
	for _, run := range runs {
		lines = append(lines, formatRun(run))
	}
	return r.reply(ctx, cmd.ChatID, strings.Join(lines, "\n"))
}

// formatRun renders "#<number> • <name> • <branch> • <status>/<conclusion>".
func formatRun(run github.Run) string {
	conclusion := noConclusion
	if run.Conclusion != nil && *run.Conclusion != "" {
		conclusion = *run.Conclusion
	}
	return fmt.Sprintf("#%d • %s • %s • %s/%s", run.RunNumber, run.Name, run.HeadBranch, run.Status, conclusion)
}

func (r *Relay) handleLogs(ctx context.Context, cmd Command) error {
	var runID int64

	arg := strings.TrimSpace(cmd.Args)
	if arg == "" || strings.EqualFold(arg, "latest") {
		list, err := r.gh.ListRuns(ctx, &github.ListRunsRequest{PerPage: statusRunLimit})
		if err != nil {
			return err
		}
		runs := list.Items()
		if len(runs) == 0 {
			return r.reply(ctx, cmd.ChatID, msgNoRuns)
		}
		runID = runs[0].ID
		r.state.SetLastRun(runID)
		if err := r.saveState(); err != nil {
			return err
		}
	} else {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid run id %q", arg)
		}
		runID = id
	}

	run, err := r.gh.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	url := run.HTMLURL
	if url == "" {
		url = fmt.Sprintf("%s/%s/actions/runs/%d", r.webURL, r.repo, runID)
	}
	return r.reply(ctx, cmd.ChatID, fmt.Sprintf(msgLogsFmt, url))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

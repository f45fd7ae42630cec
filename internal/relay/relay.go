// Package relay turns chat commands into GitHub Actions triggers.
//
// A Relay owns one long-poll loop. Every update is handled to completion,
// replies included, before the next one is fetched, so the relay state needs
// no locking. The update cursor lives only in memory: after a restart the
// last batch may be delivered again.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/immorage42/ghrelay/internal/github"
	"github.com/immorage42/ghrelay/internal/state"
	"github.com/immorage42/ghrelay/internal/telegram"
)

// DefaultRetryDelay is the pause after a failed poll.
const DefaultRetryDelay = 2 * time.Second

// DefaultPollTimeout is the server-side long-poll wait in seconds.
const DefaultPollTimeout = 50

// Messenger is the chat side of the relay.
type Messenger interface {
	GetUpdates(ctx context.Context, offset, timeout int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) error
}

// Actions is the GitHub side of the relay.
type Actions interface {
	Dispatch(ctx context.Context, eventType string, payload any) error
	ListRuns(ctx context.Context, req *github.ListRunsRequest) (*github.RunList, error)
	GetRun(ctx context.Context, runID int64) (*github.Run, error)
}

// Options configure a Relay.
type Options struct {
	Repo          string // owner/name, used for fallback run URLs
	WebURL        string // e.g. https://github.com
	StateFile     string
	DefaultBranch string
	AllowList     AllowList
	PollTimeout   int // seconds
	RetryDelay    time.Duration
	Logger        *slog.Logger
	Metrics       *Metrics
}

type handlerFunc func(ctx context.Context, cmd Command) error

// Relay is the command relay. It is not safe for concurrent use; Run drives it
// from a single goroutine.
type Relay struct {
	tg Messenger
	gh Actions

	allow       AllowList
	state       *state.State
	statePath   string
	offset      int
	pollTimeout int
	retryDelay  time.Duration
	repo        string
	webURL      string

	log      *slog.Logger
	metrics  *Metrics
	handlers map[string]handlerFunc
}

// New creates a relay and loads persisted state. A missing or corrupt state
// file silently yields defaults.
func New(tg Messenger, gh Actions, opts Options) *Relay {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	st, err := state.Load(opts.StateFile, opts.DefaultBranch)
	if err != nil {
		log.Debug("state not loaded, using defaults", "path", opts.StateFile, "error", err)
	}

	r := &Relay{
		tg:          tg,
		gh:          gh,
		allow:       opts.AllowList,
		state:       st,
		statePath:   opts.StateFile,
		pollTimeout: opts.PollTimeout,
		retryDelay:  opts.RetryDelay,
		repo:        opts.Repo,
		webURL:      strings.TrimRight(opts.WebURL, "/"),
		log:         log,
		metrics:     opts.Metrics,
	}
	if r.pollTimeout <= 0 {
		r.pollTimeout = DefaultPollTimeout
	}
	if r.retryDelay <= 0 {
		r.retryDelay = DefaultRetryDelay
	}
	if r.webURL == "" {
		r.webURL = "https://github.com"
	}

	r.handlers = map[string]handlerFunc{
		cmdHelp:    r.handleHelp,
		cmdBranch:  r.handleBranch,
		cmdPentest: r.handlePentest,
		cmdE2E:     r.handleE2E,
		cmdDeploy:  r.handleDeploy,
		cmdStatus:  r.handleStatus,
		cmdLogs:    r.handleLogs,
	}
	return r
}

// Run polls for updates until ctx is cancelled. Poll failures are logged and
// retried after a fixed delay, forever.
func (r *Relay) Run(ctx context.Context) error {
	r.log.Info("relay started",
		"repo", r.repo,
		"branch", r.state.DefaultBranch,
		"allowed_chats", r.allow.Len(),
		"poll_timeout", r.pollTimeout)

	for {
		if ctx.Err() != nil {
			r.log.Info("relay stopped")
			return nil
		}

		if err := r.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.metrics.pollError()
			r.log.Error("poll error", "error", err, "retry_in", r.retryDelay)

			t := time.NewTimer(r.retryDelay)
			select {
			case <-ctx.Done():
				t.Stop()
			case <-t.C:
			}
		}
	}
}

// PollOnce issues one long poll and handles every returned update in order.
func (r *Relay) PollOnce(ctx context.Context) error {
	updates, err := r.tg.GetUpdates(ctx, r.offset, r.pollTimeout)
	if err != nil {
		return err
	}

	for _, u := range updates {
		if u.ID >= r.offset {
			r.offset = u.ID + 1
		}
		r.metrics.update()
		r.handleUpdate(ctx, u)
	}
	return nil
}

// Offset returns the next update id the relay will ask for.
func (r *Relay) Offset() int {
	return r.offset
}

func (r *Relay) handleUpdate(ctx context.Context, u telegram.Update) {
	if u.Message == nil {
		return
	}
	text := strings.TrimSpace(u.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	r.HandleCommand(ctx, u.Message.ChatID, text)
}

// HandleCommand checks the allow-list, runs the matching action and turns any
// failure into a single error reply. It never returns an error: one bad
// command must not stop the poll loop.
func (r *Relay) HandleCommand(ctx context.Context, chatID int64, text string) {
	log := r.log.With("cmd_id", uuid.NewString(), "chat_id", chatID)

	if !r.allow.Allows(chatID) {
		log.Warn("unauthorized chat")
		r.metrics.command(noCommand, outcomeDenied)
		r.replyOrLog(ctx, log, chatID, msgNotAuthorized)
		return
	}

	cmd := ParseCommand(chatID, text)
	log = log.With("command", cmd.Name)

	h, ok := r.handlers[cmd.Name]
	if !ok {
		log.Info("unknown command")
		r.metrics.command(noCommand, outcomeUnknown)
		r.replyOrLog(ctx, log, chatID, msgUnknownCommand)
		return
	}

	start := time.Now()
	if err := r.runHandler(ctx, h, cmd); err != nil {
		log.Warn("command failed", "error", err, "duration", time.Since(start))
		r.metrics.command(cmd.Name, outcomeError)
		r.replyOrLog(ctx, log, chatID, fmt.Sprintf(msgErrorFmt, err.Error()))
		return
	}

	log.Info("command handled", "args", cmd.Args, "duration", time.Since(start))
	r.metrics.command(cmd.Name, outcomeOK)
}

// runHandler converts a panicking action into an ordinary error.
func (r *Relay) runHandler(ctx context.Context, h handlerFunc, cmd Command) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("internal error: %v", p)
		}
	}()
	return h(ctx, cmd)
}

func (r *Relay) reply(ctx context.Context, chatID int64, text string) error {
	return r.tg.SendMessage(ctx, chatID, text, "")
}

func (r *Relay) replyOrLog(ctx context.Context, log *slog.Logger, chatID int64, text string) {
	if err := r.reply(ctx, chatID, text); err != nil {
		log.Error("reply failed", "error", err)
	}
}

func (r *Relay) saveState() error {
	if err := state.Save(r.statePath, r.state); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	return nil
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/immorage42/ghrelay/internal/config"
	"github.com/immorage42/ghrelay/internal/github"
	"github.com/immorage42/ghrelay/internal/logging"
	"github.com/immorage42/ghrelay/internal/relay"
	"github.com/immorage42/ghrelay/internal/telegram"
)

// CLI flags shared by the root command and run
var (
	runRepo        string
	runBranch      string
	runStateFile   string
	runLogLevel    string
	runMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay (default)",
	Long: `Start the relay: long-poll Telegram and handle commands until
interrupted (SIGINT or SIGTERM).

Examples:
  ghrelay run
  ghrelay run --repo acme/widgets --branch develop
  ghrelay run --metrics-addr :9090 --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runRelay,
}

func init() {
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runRepo, "repo", "", "GitHub repository (owner/name)")
	cmd.Flags().StringVar(&runBranch, "branch", "", "Default branch when no state is saved")
	cmd.Flags().StringVar(&runStateFile, "state-file", "", "Path to the relay state file")
	cmd.Flags().StringVar(&runLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

// applyRunFlags overrides cfg with the flags that were set explicitly.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("repo") {
		cfg.GitHubRepo = runRepo
	}
	if flags.Changed("branch") {
		cfg.DefaultBranch = runBranch
	}
	if flags.Changed("state-file") {
		cfg.StateFile = runStateFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = runLogLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = runMetricsAddr
	}
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	if err := logging.RouteBotLogger(log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tg, err := connectTelegram(ctx, cfg, log)
	if err != nil {
		// Interrupted before the bot API was reachable.
		log.Info("relay stopped")
		return nil
	}
	log.Info("connected to telegram", "bot", tg.Username())

	gh := github.New(cfg.GitHubAPIURL, cfg.GitHubRepo, cfg.GitHubToken)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := relay.NewMetrics(reg)

	if cfg.MetricsAddr != "" {
		srv, _, err := startMetricsServer(cfg.MetricsAddr, reg, log)
		if err != nil {
			return err
		}
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()
	}

	r := relay.New(tg, gh, relay.Options{
		Repo:          cfg.GitHubRepo,
		WebURL:        cfg.GitHubWebURL,
		StateFile:     cfg.StateFile,
		DefaultBranch: cfg.DefaultBranch,
		AllowList:     relay.NewAllowList(cfg.AllowedChatIDs),
		PollTimeout:   cfg.PollTimeoutSeconds,
		RetryDelay:    cfg.RetryDelayDuration(),
		Logger:        log,
		Metrics:       metrics,
	})
	return r.Run(ctx)
}

// connectTelegram retries getMe every retry delay until it succeeds. It only
// fails once ctx is done.
func connectTelegram(ctx context.Context, cfg *config.Config, log *slog.Logger) (*telegram.Client, error) {
	opts := telegram.Options{
		Endpoint:    cfg.TelegramAPIEndpoint,
		PollTimeout: cfg.PollTimeout(),
		SendRate:    cfg.SendRate,
		SendBurst:   cfg.SendBurst,
	}
	delay := cfg.RetryDelayDuration()

	for {
		tg, err := telegram.New(ctx, cfg.TelegramBotToken, opts)
		if err == nil {
			return tg, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error("telegram unavailable", "error", err, "retry_in", delay)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// startMetricsServer serves /metrics from reg and returns the bound address.
// The listener is bound before returning so address errors surface at startup.
func startMetricsServer(addr string, reg *prometheus.Registry, log *slog.Logger) (*http.Server, string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "error", err)
		}
	}()
	log.Info("serving metrics", "addr", ln.Addr().String())
	return srv, ln.Addr().String(), nil
}

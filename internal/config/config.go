// Package config handles relay configuration.
//
// Values come from an optional YAML file (ghrelay.yaml in the working directory
// by default) overlaid with environment variables:
//
//	telegram_bot_token: "123:abc"        - TELEGRAM_BOT_TOKEN (required)
//	allowed_chat_ids: ["-100123", "42"]  - ALLOWED_CHAT_IDS, comma separated (empty allows all chats)
//	github_token: "ghp_..."              - GITHUB_TOKEN (required)
//	github_repo: "owner/name"            - GITHUB_REPO (required)
//	default_branch: "main"               - DEFAULT_BRANCH
//	state_file: "/var/lib/ghrelay.json"  - RELAY_STATE_FILE
//	poll_timeout_seconds: 50             - RELAY_POLL_TIMEOUT
//	retry_delay: "2s"                    - RELAY_RETRY_DELAY
//	send_rate: 20                        - RELAY_SEND_RATE (messages per second, 0 disables throttling)
//	send_burst: 5                        - RELAY_SEND_BURST
//	log_level: "info"                    - RELAY_LOG_LEVEL
//	log_format: "text"                   - RELAY_LOG_FORMAT
//	metrics_addr: ":9090"                - RELAY_METRICS_ADDR (empty disables /metrics)
//	telegram_api_endpoint: "..."         - TELEGRAM_API_ENDPOINT
//	github_api_url: "..."                - GITHUB_API_URL
//	github_web_url: "..."                - GITHUB_WEB_URL
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the default configuration file.
const FileName = "ghrelay.yaml"

// Defaults for optional settings.
const (
	DefaultBranch      = "main"
	DefaultPollTimeout = 50
	DefaultRetryDelay  = "2s"
	DefaultSendRate    = 20
	DefaultSendBurst   = 5
	DefaultGitHubWeb   = "https://github.com"
	maxPollTimeout     = 600
)

// customPath holds an optional custom config file path.
// When empty, Load() uses the default FileName and tolerates its absence.
var customPath string

// SetPath sets a custom config file path for Load() to use.
// Pass an empty string to reset to the default path.
func SetPath(path string) {
	customPath = path
}

// GetPath returns the current config file path.
// Returns the custom path if set, otherwise the default FileName.
func GetPath() string {
	if customPath != "" {
		return customPath
	}
	return FileName
}

var (
	repoPattern       = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)
	urlPattern        = regexp.MustCompile(`^https?://[^\s]+$`)
	chatIDPattern     = regexp.MustCompile(`^-?[0-9]+$`)
	endpointVerbCount = 2
)

// Config is the relay configuration.
type Config struct {
	TelegramBotToken    string   `yaml:"telegram_bot_token"`
	AllowedChatIDs      []string `yaml:"allowed_chat_ids,omitempty"`
	GitHubToken         string   `yaml:"github_token"`
	GitHubRepo          string   `yaml:"github_repo"`
	DefaultBranch       string   `yaml:"default_branch,omitempty"`
	StateFile           string   `yaml:"state_file,omitempty"`
	PollTimeoutSeconds  int      `yaml:"poll_timeout_seconds,omitempty"`
	RetryDelay          string   `yaml:"retry_delay,omitempty"`
	SendRate            float64  `yaml:"send_rate,omitempty"`
	SendBurst           int      `yaml:"send_burst,omitempty"`
	LogLevel            string   `yaml:"log_level,omitempty"`
	LogFormat           string   `yaml:"log_format,omitempty"`
	MetricsAddr         string   `yaml:"metrics_addr,omitempty"`
	TelegramAPIEndpoint string   `yaml:"telegram_api_endpoint,omitempty"`
	GitHubAPIURL        string   `yaml:"github_api_url,omitempty"`
	GitHubWebURL        string   `yaml:"github_web_url,omitempty"`
}

// DefaultStateFile is where relay state lives when nothing else is configured.
func DefaultStateFile() string {
	return filepath.Join(os.TempDir(), "ghrelay-state.json")
}

// Defaults returns a config with every optional field set.
func Defaults() *Config {
	return &Config{
		DefaultBranch:      DefaultBranch,
		StateFile:          DefaultStateFile(),
		PollTimeoutSeconds: DefaultPollTimeout,
		RetryDelay:         DefaultRetryDelay,
		SendRate:           DefaultSendRate,
		SendBurst:          DefaultSendBurst,
		LogLevel:           "info",
		LogFormat:          "text",
		GitHubWebURL:       DefaultGitHubWeb,
	}
}

// Load builds the effective configuration: defaults, then the config file,
// then environment variables. A missing default file is not an error; a
// missing file set via SetPath is.
func Load() (*Config, error) {
	cfg := Defaults()

	if customPath != "" {
		if err := cfg.mergeFile(customPath); err != nil {
			return nil, err
		}
	} else if err := cfg.mergeFile(FileName); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFrom reads a configuration file on top of the defaults, without environment overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // Return unwrapped for os.IsNotExist() checks
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays non-empty environment variables onto c.
func (c *Config) ApplyEnv() {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString(&c.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.GitHubToken, "GITHUB_TOKEN")
	setString(&c.GitHubRepo, "GITHUB_REPO")
	setString(&c.DefaultBranch, "DEFAULT_BRANCH")
	setString(&c.StateFile, "RELAY_STATE_FILE")
	setString(&c.RetryDelay, "RELAY_RETRY_DELAY")
	setString(&c.LogLevel, "RELAY_LOG_LEVEL")
	setString(&c.LogFormat, "RELAY_LOG_FORMAT")
	setString(&c.MetricsAddr, "RELAY_METRICS_ADDR")
	setString(&c.TelegramAPIEndpoint, "TELEGRAM_API_ENDPOINT")
	setString(&c.GitHubAPIURL, "GITHUB_API_URL")
	setString(&c.GitHubWebURL, "GITHUB_WEB_URL")

	if v := strings.TrimSpace(os.Getenv("ALLOWED_CHAT_IDS")); v != "" {
		c.AllowedChatIDs = SplitList(v)
	}
	// Malformed numbers are kept as-is in the raw field and rejected by Validate.
	if v := strings.TrimSpace(os.Getenv("RELAY_POLL_TIMEOUT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			n = -1
		}
		c.PollTimeoutSeconds = n
	}
	if v := strings.TrimSpace(os.Getenv("RELAY_SEND_RATE")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			f = -1
		}
		c.SendRate = f
	}
	if v := strings.TrimSpace(os.Getenv("RELAY_SEND_BURST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			n = -1
		}
		c.SendBurst = n
	}
}

// SplitList splits a comma-separated list, trimming whitespace and dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Save writes the configuration to the config file with owner-only permissions.
// Uses the custom path if set via SetPath(), otherwise uses the default FileName.
func (c *Config) Save() error {
	path := GetPath()
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	header := "# Generated by: ghrelay init\n# Contains access tokens - DO NOT COMMIT\n\n"
	content := header + string(data)

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

// MissingError lists required settings that were not provided.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return "missing env: " + strings.Join(e.Vars, ", ")
}

// Validate checks that all required fields are present and valid.
// Missing required values are reported together as a *MissingError.
func (c *Config) Validate() error {
	var missing []string
	if c.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.GitHubToken == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if c.GitHubRepo == "" {
		missing = append(missing, "GITHUB_REPO")
	}
	if len(missing) > 0 {
		return &MissingError{Vars: missing}
	}

	if !repoPattern.MatchString(c.GitHubRepo) {
		return fmt.Errorf("github_repo must be in format owner/name (got %q)", c.GitHubRepo)
	}
	for _, id := range c.AllowedChatIDs {
		if !chatIDPattern.MatchString(id) {
			return fmt.Errorf("allowed_chat_ids: %q is not a numeric chat id", id)
		}
	}
	if c.PollTimeoutSeconds < 1 || c.PollTimeoutSeconds > maxPollTimeout {
		return fmt.Errorf("poll_timeout_seconds must be between 1 and %d", maxPollTimeout)
	}
	if d, err := time.ParseDuration(c.RetryDelay); err != nil || d <= 0 {
		return fmt.Errorf("retry_delay must be a positive duration (e.g. 2s)")
	}
	if c.SendRate < 0 {
		return fmt.Errorf("send_rate must not be negative")
	}
	if c.SendBurst < 0 {
		return fmt.Errorf("send_burst must not be negative")
	}
	if c.StateFile == "" {
		return fmt.Errorf("state_file must not be empty")
	}
	if c.GitHubAPIURL != "" && !urlPattern.MatchString(c.GitHubAPIURL) {
		return fmt.Errorf("github_api_url must be a valid HTTP(S) URL")
	}
	if c.GitHubWebURL != "" && !urlPattern.MatchString(c.GitHubWebURL) {
		return fmt.Errorf("github_web_url must be a valid HTTP(S) URL")
	}
	if c.TelegramAPIEndpoint != "" && strings.Count(c.TelegramAPIEndpoint, "%s") != endpointVerbCount {
		return fmt.Errorf("telegram_api_endpoint must contain two %%s verbs (token, method)")
	}

	return nil
}

// PollTimeout returns the long-poll wait as a duration.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutSeconds) * time.Second
}

// RetryDelayDuration returns the parsed retry delay, falling back to the default.
func (c *Config) RetryDelayDuration() time.Duration {
	if d, err := time.ParseDuration(c.RetryDelay); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultRetryDelay)
	return d
}

// IsValidRepo reports whether repo looks like "owner/name".
func IsValidRepo(repo string) bool {
	return repoPattern.MatchString(strings.TrimSpace(repo))
}

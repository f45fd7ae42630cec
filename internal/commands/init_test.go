package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/immorage42/ghrelay/internal/config"
)

func TestInitCommand_WritesConfig(t *testing.T) {
	tmpDir := setupTempDir(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	initRepo = "acme/widgets"
	initChatIDs = "42, -100123"

	var out bytes.Buffer
	if err := runInit(&out); err != nil {
		t.Fatalf("runInit error: %v", err)
	}

	path := filepath.Join(tmpDir, config.FileName)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom error: %v", err)
	}
	if cfg.TelegramBotToken != "123:abc" || cfg.GitHubToken != "ghp_test" || cfg.GitHubRepo != "acme/widgets" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.AllowedChatIDs, []string{"42", "-100123"}) {
		t.Errorf("AllowedChatIDs = %v", cfg.AllowedChatIDs)
	}
	if !strings.Contains(out.String(), "Wrote ") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestInitCommand_ExistingConfigNeedsForce(t *testing.T) {
	tmpDir := setupTempDir(t)
	path := filepath.Join(tmpDir, config.FileName)
	if err := os.WriteFile(path, []byte("github_repo: old/repo\n"), 0600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	initRepo = "acme/widgets"
	initChatIDs = "1"

	var out bytes.Buffer
	if err := runInit(&out); err != nil {
		t.Fatalf("runInit error: %v", err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("expected already-exists notice, got %q", out.String())
	}
	if data, _ := os.ReadFile(path); string(data) != "github_repo: old/repo\n" {
		t.Errorf("config was overwritten without --force: %q", data)
	}

	initForce = true
	out.Reset()
	if err := runInit(&out); err != nil {
		t.Fatalf("runInit --force error: %v", err)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom error: %v", err)
	}
	if cfg.GitHubRepo != "acme/widgets" {
		t.Errorf("GitHubRepo = %q, want acme/widgets", cfg.GitHubRepo)
	}
}

func TestInitCommand_MissingTokens(t *testing.T) {
	tmpDir := setupTempDir(t)
	initRepo = "acme/widgets"
	initChatIDs = "1"

	// Only reachable without prompts when stdin is not a terminal.
	if isTTY() {
		t.Skip("stdin is a terminal")
	}

	err := runInit(&bytes.Buffer{})
	var missing *config.MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *config.MissingError, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(tmpDir, config.FileName)); !os.IsNotExist(statErr) {
		t.Error("config should not be written when validation fails")
	}
}

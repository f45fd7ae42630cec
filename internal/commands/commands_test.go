package commands

import (
	"os"
	"testing"
)

// clearEnv blanks every variable config.ApplyEnv reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_BOT_TOKEN", "ALLOWED_CHAT_IDS", "GITHUB_TOKEN", "GITHUB_REPO", "DEFAULT_BRANCH",
		"RELAY_STATE_FILE", "RELAY_POLL_TIMEOUT", "RELAY_RETRY_DELAY", "RELAY_SEND_RATE",
		"RELAY_SEND_BURST", "RELAY_LOG_LEVEL", "RELAY_LOG_FORMAT", "RELAY_METRICS_ADDR",
		"TELEGRAM_API_ENDPOINT", "GITHUB_API_URL", "GITHUB_WEB_URL",
	} {
		t.Setenv(key, "")
	}
}

// setupTempDir runs the test in an empty working directory with a clean
// environment and default flag values.
func setupTempDir(t *testing.T) string {
	t.Helper()
	clearEnv(t)

	configPath = ""
	initRepo, initChatIDs, initBranch, initForce = "", "", "", false
	stateJSON, checkJSON = false, false
	t.Cleanup(func() { configPath = "" })

	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	return tmpDir
}

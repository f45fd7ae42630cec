package relay

import "strings"

const (
	msgNotAuthorized  = "Not authorized."
	msgUnknownCommand = "Unknown command. /help for an overview."
	msgErrorFmt       = "❌ Error: %s"
	msgBranchFmt      = "🟢 Branch: %s"

	msgPentestStarting   = "🛡️ Starting pen-test harness…"
	msgPentestDispatched = "✅ Dispatch sent: pentest"
	msgE2EStarting       = "🧪 Starting E2E…"
	msgE2EDispatched     = "✅ Dispatch sent: e2e"
	msgDeployStartingFmt = "🚀 Deploy (%s)…"
	msgDeployDoneFmt     = "✅ Dispatch sent: deploy (%s)"

	msgNoRunsFound = "No runs found."
	msgNoRuns      = "No runs."
	msgLogsFmt     = "🗒️ Logs: %s"

	noConclusion = "—"
)

// Defaults applied when a command is sent without arguments.
const (
	defaultPentestCommand = "default"
	defaultE2ECommand     = "npm run test:e2e"
	defaultDeployEnv      = "preview"
	statusRunLimit        = 5
)

// helpText is sent with Markdown parse mode.
func helpText() string {
	return strings.Join([]string{
		"🤖 *Mobile Control*",
		"",
		"/help – command overview",
		"/branch <name> – set/show the default branch",
		"/pentest [args] – run the pen-test harness (repository\\_dispatch: pentest)",
		"/e2e [args] – run the E2E tests",
		"/deploy [env] – start the deploy workflow",
		"/status [workflow] – show the latest runs",
		"/logs [run\\_id|latest] – link to a run's logs",
	}, "\n")
}

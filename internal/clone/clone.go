// Package clone executes the in-pod Git clone (C5) that runs after a
// project's readiness wait succeeds. It shells out inside the agent
// container rather than cloning from the control plane, so the Git token
// never leaves the cluster boundary the secret already crosses.
package clone

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/orchestrator"
	"github.com/FilippTrigub/space-goose/internal/renderer"
)

// workspaceDir is the fixed in-container path the agent expects its
// repository checkout at.
const workspaceDir = "/workspace/repo"

// Cloner runs Git clone/fast-forward operations inside a project's pod.
type Cloner struct {
	orch   *orchestrator.Client
	logger zerolog.Logger
}

// NewCloner wraps an orchestrator client.
func NewCloner(orch *orchestrator.Client, logger zerolog.Logger) *Cloner {
	return &Cloner{orch: orch, logger: logger.With().Str("component", "clone").Logger()}
}

// Result describes the outcome of one clone attempt.
type Result struct {
	Succeeded bool
	ExitCode  int
	Stderr    string
}

// Clone ensures the workspace directory holds a checkout of repoURL. If it
// already contains a matching repository it fast-forwards; otherwise it
// removes any stale contents and clones fresh. The Git token is read from
// the environment the secret already injected, never passed on the command
// line. It is idempotent across reactivations: re-running against an
// up-to-date checkout is a no-op fast-forward.
func (c *Cloner) Clone(ctx context.Context, namespace, projectID, repoURL string) (*Result, error) {
	if repoURL == "" {
		return &Result{Succeeded: true}, nil
	}

	script := buildCloneScript(repoURL)
	selector := fmt.Sprintf("app=%s", renderer.DeploymentName(projectID))

	execResult, err := c.orch.ExecInPod(ctx, namespace, selector, []string{"sh", "-c", script}, nil)
	if err != nil {
		return nil, cperrors.Wrap(cperrors.KindOrchestrator, "exec clone in pod", err)
	}

	res := &Result{
		Succeeded: execResult.ExitCode == 0,
		ExitCode:  execResult.ExitCode,
		Stderr:    strings.TrimSpace(execResult.Stderr),
	}
	return res, nil
}

// buildCloneScript produces a shell script that is safe to re-run: it
// ensures the workspace exists, and either fast-forwards an existing
// checkout of the same remote or replaces whatever is there with a fresh
// clone. GIT_TOKEN is expected in the environment (injected via the
// project's secret) and is spliced into the remote URL only inside the
// container, never logged by the control plane. Because the stored origin
// carries that token, the same-remote check matches on the URL without its
// https:// scheme.
func buildCloneScript(repoURL string) string {
	return fmt.Sprintf(`set -e
mkdir -p %[1]s
cd %[1]s
AUTH_URL=$(echo %[2]q | sed -E "s#https://#https://x-access-token:${GIT_TOKEN}@#")
if [ -d .git ] && git remote get-url origin 2>/dev/null | grep -qF %[3]q; then
  git fetch origin && git merge --ff-only origin/HEAD
else
  cd ..
  rm -rf %[1]s
  git clone "$AUTH_URL" %[1]s
fi
`, workspaceDir, repoURL, strings.TrimPrefix(repoURL, "https://"))
}

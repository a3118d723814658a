package deploy

import (
	"context"
	"fmt"
	"os/exec"
)

// Runner executes the deployment script and returns its combined output.
type Runner interface {
	Run(ctx context.Context) ([]byte, error)
}

// ScriptRunner runs Script through Shell, e.g. `sh ./deploy.sh`.
type ScriptRunner struct {
	Shell  string
	Script string
	Dir    string
}

func (r ScriptRunner) Run(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Shell, r.Script)
	cmd.Dir = r.Dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("failed to run %s: %w", r.Script, err)
	}
	return output, nil
}

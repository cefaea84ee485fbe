package gitops

import (
	"errors"
	"fmt"
	"os/exec"
)

// CommitMessage is the auto-commit message for a saved level result.
func CommitMessage(model string, level int) string {
	return fmt.Sprintf("results: level%d — %s\n\n[benchmark auto-commit]", level, model)
}

// CommitResults stages path inside repoDir and commits it with message.
// It reports whether a commit was made; nothing staged is not an error.
func CommitResults(repoDir, path, message string) (bool, error) {
	add := exec.Command("git", "add", path)
	add.Dir = repoDir
	if out, err := add.CombinedOutput(); err != nil {
		return false, fmt.Errorf("git add %s: %s: %w", path, out, err)
	}

	diff := exec.Command("git", "diff", "--cached", "--quiet")
	diff.Dir = repoDir
	err := diff.Run()
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		return false, fmt.Errorf("git diff --cached: %w", err)
	}

	commit := exec.Command("git", "commit", "-m", message)
	commit.Dir = repoDir
	if out, err := commit.CombinedOutput(); err != nil {
		return false, fmt.Errorf("git commit: %s: %w", out, err)
	}
	return true, nil
}

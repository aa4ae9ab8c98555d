// Package gitwatch computes the repository status shown in the
// prompt: branch name, dirty/staged/untracked flags, ahead/behind
// counts, and any in-progress operation (merge/rebase/cherry-pick/
// bisect). Grounded on original_source/src/shell/git.rs's git2-backed
// Info, reimplemented over `git status --porcelain=v2 --branch` since
// no git plumbing library (go-git, git2go) appears anywhere in the
// retrieval pack — shelling out to the git binary is the only
// ecosystem-grounded option, the same choice dcosson-h2 makes for
// every other subprocess it launches (internal/vt.StartPTY).
package gitwatch

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Operation names an in-progress git operation, mirroring
// original_source's ActiveOperation enum.
type Operation int

const (
	OperationNone Operation = iota
	OperationMerge
	OperationRevert
	OperationCherryPick
	OperationBisect
	OperationRebase
)

// Info is the repository status snapshot delivered as a GitInfo event
// to the controller (spec.md §4.9).
type Info struct {
	Branch        string
	ModifiedFiles bool
	StagedFiles   bool
	NewFiles      bool
	HasCommits    bool
	Operation     Operation
	Ahead, Behind int
	HasRemote     bool
}

// Poll runs `git status --porcelain=v2 --branch` in dir and parses the
// result. Returns (nil, nil) when dir isn't inside a git work tree (a
// non-git directory is not an error, just "no prompt segment").
func Poll(ctx context.Context, dir string) (*Info, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain=v2", "--branch")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			_ = exitErr
			return nil, nil
		}
		return nil, err
	}

	info := &Info{}
	sc := bufio.NewScanner(strings.NewReader(string(out)))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "# branch.head "):
			info.Branch = strings.TrimPrefix(line, "# branch.head ")
		case strings.HasPrefix(line, "# branch.oid "):
			info.HasCommits = strings.TrimPrefix(line, "# branch.oid ") != "(initial)"
		case strings.HasPrefix(line, "# branch.ab "):
			fields := strings.Fields(strings.TrimPrefix(line, "# branch.ab "))
			info.HasRemote = true
			if len(fields) == 2 {
				info.Ahead = parseSigned(fields[0])
				info.Behind = -parseSigned(fields[1])
			}
		case strings.HasPrefix(line, "1 "), strings.HasPrefix(line, "2 "):
			classifyChange(line, info)
		case strings.HasPrefix(line, "u "):
			info.ModifiedFiles = true
			info.StagedFiles = true
		case strings.HasPrefix(line, "? "):
			info.NewFiles = true
		}
	}

	op, err := detectOperation(ctx, dir)
	if err != nil {
		return nil, err
	}
	info.Operation = op
	return info, nil
}

// classifyChange reads the two-character XY status code from a
// porcelain v2 "1 "/"2 " change line: X is the index (staged) state, Y
// is the worktree (modified) state.
func classifyChange(line string, info *Info) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 2 || len(fields[1]) != 2 {
		return
	}
	x, y := fields[1][0], fields[1][1]
	if x != '.' {
		info.StagedFiles = true
	}
	if y != '.' {
		info.ModifiedFiles = true
	}
}

func parseSigned(s string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(s, "+"))
	return n
}

// detectOperation inspects .git for the marker files git itself leaves
// behind during a merge/rebase/cherry-pick/bisect, the same signals
// `git status` itself uses to print "(fixing conflicts)"-style hints.
func detectOperation(ctx context.Context, dir string) (Operation, error) {
	gitDir, err := gitCommonDir(ctx, dir)
	if err != nil || gitDir == "" {
		return OperationNone, nil
	}
	switch {
	case exists(gitDir, "MERGE_HEAD"):
		return OperationMerge, nil
	case exists(gitDir, "REVERT_HEAD"):
		return OperationRevert, nil
	case exists(gitDir, "CHERRY_PICK_HEAD"):
		return OperationCherryPick, nil
	case exists(gitDir, "BISECT_LOG"):
		return OperationBisect, nil
	case exists(gitDir, "rebase-merge"), exists(gitDir, "rebase-apply"):
		return OperationRebase, nil
	default:
		return OperationNone, nil
	}
}

func gitCommonDir(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-common-dir")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return "", nil
		}
		return "", err
	}
	path := strings.TrimSpace(string(out))
	if !strings.HasPrefix(path, "/") {
		path = strings.TrimSuffix(dir, "/") + "/" + path
	}
	return path, nil
}

// exists reports whether gitDir/name is present, regardless of whether
// it's a file (MERGE_HEAD, BISECT_LOG) or a directory (rebase-merge,
// rebase-apply).
func exists(gitDir, name string) bool {
	_, err := os.Stat(filepath.Join(gitDir, name))
	return err == nil
}

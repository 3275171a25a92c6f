// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package deploy publishes the built site to a static hosting branch.
//
// The branch's contents are replaced with the built tree in a temporary git
// worktree. When the tree is byte-identical to what the branch already holds
// no commit is made, so reruns of an unchanged dashboard stay invisible in
// the branch history.
package deploy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Possible errors, used in tests.
var (
	ErrNoSiteDir = errors.New("site directory does not exist")
)

// Logf is a simple printf-like logging function.
type Logf func(format string, args ...any)

// Config represents a deploy configuration.
type Config struct {
	// Dir is the directory with the built site.
	Dir string
	// RepoDir is the repository root. If empty, the current directory is
	// used.
	RepoDir string
	// Branch is the hosting branch. If empty, gh-pages is used.
	Branch string
	// Remote is the git remote to push to. If empty, origin is used.
	Remote string
	// Message overrides the generated commit message.
	Message string
	// AuthorName and AuthorEmail set the committer identity.
	AuthorName  string
	AuthorEmail string
	// DryRun commits but doesn't push.
	DryRun bool
	// Logf specifies a logger to use. If nil, log.Printf is used.
	Logf Logf

	now func() time.Time // used in tests
}

func (c *Config) setDefaults() {
	if c.RepoDir == "" {
		c.RepoDir = "."
	}
	if c.Branch == "" {
		c.Branch = "gh-pages"
	}
	if c.Remote == "" {
		c.Remote = "origin"
	}
	if c.AuthorName == "" {
		c.AuthorName = "lmsm-dashboard"
	}
	if c.AuthorEmail == "" {
		c.AuthorEmail = "dashboard@sesim-kntlu.org"
	}
	if c.Logf == nil {
		c.Logf = log.Printf
	}
	if c.now == nil {
		c.now = time.Now
	}
}

// Publish replaces the hosting branch's contents with c.Dir and pushes the
// result. It reports whether a commit was made: an unchanged tree produces
// no commit and no push.
func Publish(ctx context.Context, c *Config) (committed bool, err error) {
	c.setDefaults()

	if _, err := os.Stat(c.Dir); err != nil {
		return false, fmt.Errorf("%w: %v", ErrNoSiteDir, err)
	}

	// The branch may only exist on the remote, e.g. on a fresh CI checkout.
	if _, err := git(ctx, c.RepoDir, "fetch", c.Remote, c.Branch); err == nil {
		git(ctx, c.RepoDir, "branch", "--force", c.Branch, c.Remote+"/"+c.Branch)
	}

	worktree, err := os.MkdirTemp("", "lmsm-deploy")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(worktree)

	if _, err := git(ctx, c.RepoDir, "rev-parse", "--verify", "refs/heads/"+c.Branch); err == nil {
		_, err = git(ctx, c.RepoDir, "worktree", "add", "--force", worktree, c.Branch)
	} else {
		c.Logf("Creating branch %s.", c.Branch)
		_, err = git(ctx, c.RepoDir, "worktree", "add", "--force", "-b", c.Branch, worktree)
	}
	if err != nil {
		return false, err
	}
	defer git(context.WithoutCancel(ctx), c.RepoDir, "worktree", "remove", "--force", worktree)

	if err := replaceContents(worktree, c.Dir); err != nil {
		return false, err
	}

	if _, err := git(ctx, worktree, "add", "-A"); err != nil {
		return false, err
	}

	// An unchanged site must not produce an empty commit.
	if _, err := git(ctx, worktree, "diff", "--cached", "--quiet"); err == nil {
		c.Logf("Site is unchanged, nothing to publish.")
		return false, nil
	}

	msg := c.Message
	if msg == "" {
		msg = "Update dashboard (" + c.now().UTC().Format(time.RFC3339) + ")"
	}
	if _, err := git(ctx, worktree,
		"-c", "user.name="+c.AuthorName,
		"-c", "user.email="+c.AuthorEmail,
		"commit", "-m", msg,
	); err != nil {
		return false, err
	}
	c.Logf("Committed updated site to %s.", c.Branch)

	if c.DryRun {
		c.Logf("Dry run, not pushing.")
		return true, nil
	}

	if _, err := git(ctx, c.RepoDir, "push", c.Remote, c.Branch); err != nil {
		return true, err
	}
	c.Logf("Pushed %s to %s.", c.Branch, c.Remote)

	return true, nil
}

// replaceContents removes everything except .git from worktree and copies
// the contents of dir into it.
func replaceContents(worktree, dir string) error {
	entries, err := os.ReadDir(worktree)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(worktree, e.Name())); err != nil {
			return err
		}
	}
	return os.CopyFS(worktree, os.DirFS(dir))
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w (it returned %q)", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

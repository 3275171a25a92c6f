// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package deploy

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"go.astrophena.name/base/testutil"
)

func TestPublishNoSiteDir(t *testing.T) {
	_, err := Publish(context.Background(), &Config{
		Dir:  filepath.Join(t.TempDir(), "does-not-exist"),
		Logf: t.Logf,
	})
	if !errors.Is(err, ErrNoSiteDir) {
		t.Fatalf("want error %v, got %v", ErrNoSiteDir, err)
	}
}

func TestPublish(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	ctx := context.Background()
	repo, origin := testRepo(t)

	site := t.TempDir()
	writeFile(t, filepath.Join(site, "index.html"), "<html>dashboard</html>")
	writeFile(t, filepath.Join(site, "robots.txt"), "User-agent: *\n")

	c := &Config{
		Dir:     site,
		RepoDir: repo,
		Logf:    t.Logf,
		now:     func() time.Time { return time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC) },
	}

	// First publish creates the branch and commits.
	committed, err := Publish(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, committed, true)
	count := commitCount(t, origin)

	// Republishing the identical site must not create a commit.
	committed, err = Publish(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, committed, false)
	testutil.AssertEqual(t, commitCount(t, origin), count)

	// A changed artifact produces exactly one more commit.
	writeFile(t, filepath.Join(site, "index.html"), "<html>updated dashboard</html>")
	committed, err = Publish(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, committed, true)
	testutil.AssertEqual(t, commitCount(t, origin), count+1)

	// The published tree matches the built one, and removed files are gone.
	ls, err := git(ctx, repo, "ls-tree", "--name-only", "gh-pages")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, ls, "index.html\nrobots.txt")
}

func TestPublishDryRun(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	ctx := context.Background()
	repo, origin := testRepo(t)

	site := t.TempDir()
	writeFile(t, filepath.Join(site, "index.html"), "<html>dashboard</html>")

	committed, err := Publish(ctx, &Config{
		Dir:     site,
		RepoDir: repo,
		DryRun:  true,
		Logf:    t.Logf,
	})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, committed, true)

	// Nothing was pushed.
	if _, err := git(ctx, origin, "rev-parse", "--verify", "refs/heads/gh-pages"); err == nil {
		t.Fatal("gh-pages exists on origin after a dry run")
	}
}

// testRepo creates a repository with one commit on main and a bare origin
// it pushes to.
func testRepo(t *testing.T) (repo, origin string) {
	t.Helper()
	ctx := context.Background()

	origin = t.TempDir()
	mustGit(t, ctx, origin, "init", "--bare")

	repo = t.TempDir()
	mustGit(t, ctx, repo, "init", "-b", "main")
	mustGit(t, ctx, repo, "config", "user.name", "test")
	mustGit(t, ctx, repo, "config", "user.email", "test@example.org")
	writeFile(t, filepath.Join(repo, "README.md"), "# test")
	mustGit(t, ctx, repo, "add", "README.md")
	mustGit(t, ctx, repo, "commit", "-m", "initial")
	mustGit(t, ctx, repo, "remote", "add", "origin", origin)
	mustGit(t, ctx, repo, "push", "origin", "main")

	return repo, origin
}

func mustGit(t *testing.T, ctx context.Context, dir string, args ...string) {
	t.Helper()
	if _, err := git(ctx, dir, args...); err != nil {
		t.Fatal(err)
	}
}

func commitCount(t *testing.T, origin string) int {
	t.Helper()
	out, err := git(context.Background(), origin, "rev-list", "--count", "gh-pages")
	if err != nil {
		t.Fatal(err)
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

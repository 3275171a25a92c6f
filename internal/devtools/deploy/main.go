// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/sesimkntlu/lmsm-dashboard/internal/config"
	"github.com/sesimkntlu/lmsm-dashboard/internal/deploy"
	"github.com/sesimkntlu/lmsm-dashboard/internal/devtools"
	"github.com/sesimkntlu/lmsm-dashboard/internal/site"

	"go.astrophena.name/base/cli"
	"go.astrophena.name/base/logger"
)

func main() { cli.Main(new(app)) }

type app struct {
	branch   string
	dryRun   bool
	offline  bool
	snapshot string
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.branch, "branch", "gh-pages", "Publish to this `branch`.")
	fs.BoolVar(&a.dryRun, "dry-run", false, "Commit, but don't push.")
	fs.BoolVar(&a.offline, "offline", false, "Use the saved sheet snapshot instead of fetching.")
	fs.StringVar(&a.snapshot, "snapshot", "sheet-snapshot.json", "Sheet snapshot `path`.")
}

func (a *app) Run(ctx context.Context) error {
	devtools.EnsureRoot()

	cfg, err := config.Load(devtools.ConfigFile)
	if err != nil {
		return err
	}

	rows, err := devtools.Rows(ctx, cfg, a.offline, a.snapshot)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "lmsm-dashboard-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	if err := site.Build(devtools.SiteConfig(cfg, dir, true), devtools.Summarize(cfg, rows)); err != nil {
		return err
	}

	committed, err := deploy.Publish(ctx, &deploy.Config{
		Dir:    dir,
		Branch: a.branch,
		DryRun: a.dryRun,
	})
	if err != nil {
		return err
	}
	if !committed {
		logger.Info(ctx, "dashboard unchanged, nothing to publish")
		return nil
	}
	logger.Info(ctx, "published dashboard", slog.String("branch", a.branch), slog.Bool("dry_run", a.dryRun))
	return nil
}

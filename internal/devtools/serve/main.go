// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"flag"
	"path/filepath"
	"time"

	"github.com/sesimkntlu/lmsm-dashboard/internal/config"
	"github.com/sesimkntlu/lmsm-dashboard/internal/devtools"
	"github.com/sesimkntlu/lmsm-dashboard/internal/report"
	"github.com/sesimkntlu/lmsm-dashboard/internal/site"

	"go.astrophena.name/base/cli"
)

func main() { cli.Main(new(app)) }

type app struct {
	listen   string
	offline  bool
	snapshot string
	refresh  time.Duration
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.listen, "listen", "localhost:3000", "Listen on `host:port`.")
	fs.BoolVar(&a.offline, "offline", false, "Use the saved sheet snapshot instead of fetching.")
	fs.StringVar(&a.snapshot, "snapshot", "sheet-snapshot.json", "Sheet snapshot `path`.")
	fs.DurationVar(&a.refresh, "refresh", 0, "Refetch the sheet at this `interval` (0 means the configured one).")
}

func (a *app) Run(ctx context.Context) error {
	devtools.EnsureRoot()
	env := cli.GetEnv(ctx)

	dir := filepath.Join(".", "build")
	if len(env.Args) > 0 {
		dir = env.Args[0]
	}

	cfg, err := config.Load(devtools.ConfigFile)
	if err != nil {
		return err
	}

	refresh := a.refresh
	if refresh == 0 {
		refresh = cfg.Spreadsheet.Refresh.Duration
	}

	src := func(ctx context.Context) (*report.Summary, error) {
		rows, err := devtools.Rows(ctx, cfg, a.offline, a.snapshot)
		if err != nil {
			return nil, err
		}
		return devtools.Summarize(cfg, rows), nil
	}

	return site.Serve(ctx, devtools.SiteConfig(cfg, dir, false), a.listen, src, refresh)
}

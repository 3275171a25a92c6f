// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"flag"
	"path/filepath"

	"github.com/sesimkntlu/lmsm-dashboard/internal/config"
	"github.com/sesimkntlu/lmsm-dashboard/internal/devtools"
	"github.com/sesimkntlu/lmsm-dashboard/internal/site"

	"go.astrophena.name/base/cli"
)

func main() { cli.Main(new(app)) }

type app struct {
	prod     bool
	offline  bool
	snapshot string
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.BoolVar(&a.prod, "prod", false, "Build in a production mode.")
	fs.BoolVar(&a.offline, "offline", false, "Use the saved sheet snapshot instead of fetching.")
	fs.StringVar(&a.snapshot, "snapshot", "sheet-snapshot.json", "Sheet snapshot `path`.")
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

	rows, err := devtools.Rows(ctx, cfg, a.offline, a.snapshot)
	if err != nil {
		return err
	}

	return site.Build(devtools.SiteConfig(cfg, dir, a.prod), devtools.Summarize(cfg, rows))
}

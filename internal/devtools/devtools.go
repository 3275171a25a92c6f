// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package devtools contains common functionality for development tools.
package devtools

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sesimkntlu/lmsm-dashboard/internal/config"
	"github.com/sesimkntlu/lmsm-dashboard/internal/report"
	"github.com/sesimkntlu/lmsm-dashboard/internal/sheets"
	"github.com/sesimkntlu/lmsm-dashboard/internal/site"

	"go.astrophena.name/base/unwrap"
)

// ConfigFile is the dashboard configuration read by the development tools.
const ConfigFile = "dashboard.toml"

// EnsureRoot checks that the current working directory is at the repository
// root and panics if it doesn't.
func EnsureRoot() {
	wd := unwrap.Value(os.Getwd())
	if _, err := os.Stat(filepath.Join(wd, ".git")); os.IsNotExist(err) {
		panic("Are you at repo root?")
	} else if err != nil {
		panic(err)
	}
}

// Rows returns the registration rows, either from the sheet or, in offline
// mode, from a previously saved snapshot. When fetching succeeds and snapshot
// is not empty, the rows are saved there for later offline use.
func Rows(ctx context.Context, cfg *config.Config, offline bool, snapshot string) ([][]string, error) {
	if offline {
		return sheets.ReadSnapshot(snapshot)
	}
	if err := cfg.CheckFetch(); err != nil {
		return nil, err
	}

	c := &sheets.Client{APIKey: cfg.Spreadsheet.APIKey}
	rows, err := c.Rows(ctx, cfg.Spreadsheet.ID, cfg.Spreadsheet.Sheet)
	if err != nil {
		return nil, err
	}
	if snapshot != "" {
		if err := sheets.WriteSnapshot(snapshot, rows); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// Summarize aggregates rows with the configured column layout.
func Summarize(cfg *config.Config, rows [][]string) *report.Summary {
	return report.Summarize(rows, cfg.Columns)
}

// SiteConfig returns a site build configuration derived from cfg.
func SiteConfig(cfg *config.Config, dst string, prod bool) *site.Config {
	return &site.Config{
		Title:           cfg.Site.Title,
		Author:          cfg.Site.Author,
		BaseURL:         cfg.BaseURL(),
		Src:             ".",
		Dst:             dst,
		Prod:            prod,
		FeedItems:       cfg.Feed.Items,
		BackgroundImage: cfg.Site.BackgroundImage,
	}
}

// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package config loads the dashboard configuration from dashboard.toml and
// the environment.
//
// Everything that is safe to commit lives in dashboard.toml. The Sheets API
// key is taken from the LMSM_SHEETS_API_KEY environment variable, which for
// local development can be put into a .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/sesimkntlu/lmsm-dashboard/internal/report"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Possible errors, used in tests.
var (
	ErrNoSpreadsheet = errors.New("spreadsheet ID and sheet name must be set")
	errInvalidTOML   = errors.New("failed to parse config")
	errInvalidURL    = errors.New("invalid base URL")
)

// Environment variables that override dashboard.toml.
const (
	envAPIKey        = "LMSM_SHEETS_API_KEY"
	envSpreadsheetID = "LMSM_SPREADSHEET_ID"
)

// Config is the dashboard configuration.
type Config struct {
	Site        Site           `toml:"site"`
	Spreadsheet Spreadsheet    `toml:"spreadsheet"`
	Columns     report.Columns `toml:"columns"`
	Feed        Feed           `toml:"feed"`
}

// Site configures the generated site.
type Site struct {
	Title           string `toml:"title"`
	Author          string `toml:"author"`
	BaseURL         string `toml:"base_url"`
	BackgroundImage string `toml:"background_image"`
}

// Spreadsheet identifies the sheet the registrations come from.
type Spreadsheet struct {
	ID    string `toml:"id"`
	Sheet string `toml:"sheet"`
	// APIKey comes from the environment, never from the file.
	APIKey string `toml:"-"`
	// Refresh is how often serve mode refetches the sheet.
	Refresh duration `toml:"refresh"`
}

// Feed configures the registrations Atom feed.
type Feed struct {
	// Items is how many of the latest registrations the feed carries.
	Items int `toml:"items"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(p []byte) error {
	dd, err := time.ParseDuration(string(p))
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

// Load reads the configuration file at path and applies environment
// overrides. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(b)
}

func parse(b []byte) (*Config, error) {
	// Defaults are applied after unmarshaling: go-toml appends array tables
	// to a pre-populated slice instead of replacing it. The columns table is
	// decoded through a pointer so that a config without one falls back to
	// the stock form layout, while a present one overrides it completely.
	var raw struct {
		Site        Site            `toml:"site"`
		Spreadsheet Spreadsheet     `toml:"spreadsheet"`
		Columns     *report.Columns `toml:"columns"`
		Feed        Feed            `toml:"feed"`
	}
	if err := toml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidTOML, err)
	}

	c := &Config{
		Site:        raw.Site,
		Spreadsheet: raw.Spreadsheet,
		Columns:     report.DefaultColumns(),
		Feed:        raw.Feed,
	}
	if raw.Columns != nil {
		c.Columns = *raw.Columns
	}

	if c.Site.Title == "" {
		c.Site.Title = "Relatóriu Atuál Progresu Rejistrasaun Selebrasaun LMSM 2025"
	}
	if c.Site.Author == "" {
		c.Site.Author = "SESIM-KNTLU"
	}
	if c.Spreadsheet.Sheet == "" {
		c.Spreadsheet.Sheet = "dadus"
	}
	if c.Spreadsheet.Refresh.Duration == 0 {
		c.Spreadsheet.Refresh = duration{3 * time.Hour}
	}
	if c.Feed.Items == 0 {
		c.Feed.Items = 20
	}

	if key := os.Getenv(envAPIKey); key != "" {
		c.Spreadsheet.APIKey = key
	}
	if id := os.Getenv(envSpreadsheetID); id != "" {
		c.Spreadsheet.ID = id
	}

	if c.Site.BaseURL != "" {
		if _, err := url.Parse(c.Site.BaseURL); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidURL, err)
		}
	}

	return c, nil
}

// CheckFetch reports whether the configuration is complete enough to fetch
// the sheet.
func (c *Config) CheckFetch() error {
	if c.Spreadsheet.ID == "" || c.Spreadsheet.Sheet == "" {
		return ErrNoSpreadsheet
	}
	return nil
}

// BaseURL returns the parsed site base URL, or nil if it isn't set.
func (c *Config) BaseURL() *url.URL {
	if c.Site.BaseURL == "" {
		return nil
	}
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil {
		return nil
	}
	return u
}

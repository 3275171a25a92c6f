// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package config

import (
	"errors"
	"testing"
	"time"

	"go.astrophena.name/base/testutil"
)

func TestParseDefaults(t *testing.T) {
	c, err := parse(nil)
	if err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, c.Site.Author, "SESIM-KNTLU")
	testutil.AssertEqual(t, c.Spreadsheet.Sheet, "dadus")
	testutil.AssertEqual(t, c.Spreadsheet.Refresh.Duration, 3*time.Hour)
	testutil.AssertEqual(t, c.Feed.Items, 20)
	testutil.AssertEqual(t, c.Columns.Municipality, 2)
}

func TestParse(t *testing.T) {
	const doc = `
[site]
title = "LMSM 2026"
base_url = "https://example.org/lmsm"
background_image = "AY1A8030.jpg"

[spreadsheet]
id = "sheet123"
sheet = "data"
refresh = "1h"

[feed]
items = 5

[columns]
municipality = 1

[[columns.students]]
name = 4
sex = 5
age = 6
`
	c, err := parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, c.Site.Title, "LMSM 2026")
	testutil.AssertEqual(t, c.Site.BackgroundImage, "AY1A8030.jpg")
	testutil.AssertEqual(t, c.Spreadsheet.ID, "sheet123")
	testutil.AssertEqual(t, c.Spreadsheet.Refresh.Duration, time.Hour)
	testutil.AssertEqual(t, c.Feed.Items, 5)
	testutil.AssertEqual(t, c.Columns.Municipality, 1)
	testutil.AssertEqual(t, len(c.Columns.Students), 1)
	testutil.AssertEqual(t, c.BaseURL().Host, "example.org")
}

func TestParseInvalid(t *testing.T) {
	if _, err := parse([]byte("site = [")); !errors.Is(err, errInvalidTOML) {
		t.Fatalf("want error %v, got %v", errInvalidTOML, err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(envAPIKey, "secret")
	t.Setenv(envSpreadsheetID, "overridden")

	c, err := parse([]byte("[spreadsheet]\nid = \"from-file\"\n"))
	if err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, c.Spreadsheet.APIKey, "secret")
	testutil.AssertEqual(t, c.Spreadsheet.ID, "overridden")
}

func TestCheckFetch(t *testing.T) {
	c, err := parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.CheckFetch(); !errors.Is(err, ErrNoSpreadsheet) {
		t.Fatalf("want error %v, got %v", ErrNoSpreadsheet, err)
	}

	c.Spreadsheet.ID = "sheet123"
	if err := c.CheckFetch(); err != nil {
		t.Fatal(err)
	}
}

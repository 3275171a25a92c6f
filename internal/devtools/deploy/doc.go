// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Deploy builds the dashboard and publishes it to the hosting branch.

This tool is designed to be run within a GitHub Actions workflow, but works
locally too. It fetches the registration sheet, builds the site in a
production mode, and commits the result to the hosting branch (gh-pages by
default). When the built site is identical to what the branch already
carries, no commit is made.

# Usage

	$ go tool deploy [flags]

# Environment Variables

  - LMSM_SHEETS_API_KEY: A Google API key with the Sheets API enabled.
  - LMSM_SPREADSHEET_ID: Overrides the spreadsheet ID from dashboard.toml.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/base/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }

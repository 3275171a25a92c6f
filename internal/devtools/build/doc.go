// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Build fetches the registration sheet and builds the dashboard site.

# Usage

	$ go tool build [flags] [dir]

Builds the site into the specified directory dir. If dir is not provided,
it defaults to build in the current working directory.

The sheet is fetched with the configuration from dashboard.toml; the
spreadsheet ID and the API key can be overridden with the
LMSM_SPREADSHEET_ID and LMSM_SHEETS_API_KEY environment variables. Each
successful fetch also saves the rows to the snapshot file, and with the
-offline flag the snapshot is used instead of fetching.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/base/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }

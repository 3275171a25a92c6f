// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package sheets fetches registration data from a Google Sheet.
//
// It talks to the Google Sheets v4 values endpoint with an API key, which
// requires the sheet to be shared as "Anyone with the link can view".
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"go.astrophena.name/base/request"
)

// Possible errors, used in tests.
var (
	ErrNoAPIKey       = errors.New("missing API key")
	ErrNoSpreadsheet  = errors.New("missing spreadsheet ID or sheet name")
	errUnexpectedDims = errors.New("unexpected major dimension")
)

const baseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// Client fetches values from the Google Sheets API.
type Client struct {
	// APIKey is a Google API key with the Sheets API enabled.
	APIKey string
	// HTTPClient is a HTTP client for making requests. If nil,
	// request.DefaultClient is used.
	HTTPClient *http.Client

	baseURL string // overridden in tests
}

// valueRange is the subset of the Sheets API values response that we need.
type valueRange struct {
	Range          string     `json:"range"`
	MajorDimension string     `json:"majorDimension"`
	Values         [][]string `json:"values"`
}

// Rows returns all data rows of the named sheet, with the header row
// stripped. A sheet that contains nothing or only a header yields no rows
// and no error.
func (c *Client) Rows(ctx context.Context, spreadsheetID, sheetName string) ([][]string, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if spreadsheetID == "" || sheetName == "" {
		return nil, ErrNoSpreadsheet
	}

	base := c.baseURL
	if base == "" {
		base = baseURL
	}
	u := base + "/" + url.PathEscape(spreadsheetID) + "/values/" + url.PathEscape(sheetName) + "?key=" + url.QueryEscape(c.APIKey)

	vr, err := request.Make[valueRange](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        u,
		HTTPClient: c.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching sheet %q: %w", sheetName, err)
	}

	if vr.MajorDimension != "" && vr.MajorDimension != "ROWS" {
		return nil, fmt.Errorf("%w: %q", errUnexpectedDims, vr.MajorDimension)
	}
	if len(vr.Values) < 2 {
		return nil, nil
	}
	return vr.Values[1:], nil
}

// WriteSnapshot saves rows to path as JSON, so they can be reused later with
// [ReadSnapshot] without talking to the API.
func WriteSnapshot(path string, rows [][]string) error {
	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// ReadSnapshot reads rows previously saved with [WriteSnapshot].
func ReadSnapshot(path string) ([][]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return rows, nil
}

package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kkayomi/class-reservation/internal/model"
)

const sheetsBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// GoogleSheets keeps a spreadsheet ledger of confirmed reservations via
// the Sheets REST API. Row numbers returned by AppendRow are stored on
// the reservation so later updates and deletes can target the right row.
// Like the calendar adapter, an unconfigured client runs disabled.
type GoogleSheets struct {
	SpreadsheetID string
	Token         string
	HTTPClient    *http.Client
	BaseURL       string
}

// NewGoogleSheets builds a sheets adapter. token or spreadsheetID may be
// empty, in which case the adapter runs disabled.
func NewGoogleSheets(spreadsheetID, token string) *GoogleSheets {
	return &GoogleSheets{
		SpreadsheetID: spreadsheetID,
		Token:         token,
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
		BaseURL:       sheetsBaseURL,
	}
}

func (g *GoogleSheets) enabled() bool { return g.SpreadsheetID != "" && g.Token != "" }

func rowValues(row model.SheetRow) []interface{} {
	memo := ""
	if row.Memo != nil {
		memo = *row.Memo
	}
	return []interface{}{
		row.CreatedAt, row.ConfirmedAt, row.ClassName, row.CustomerName,
		row.CustomerPhone, row.NumPeople, row.Date, row.Time, row.Price, memo,
	}
}

// AppendRow appends one reservation row to the ledger and returns the
// spreadsheet row number it landed on, parsed from the API's
// updatedRange (e.g. "Sheet1!A7:J7" -> 7).
func (g *GoogleSheets) AppendRow(ctx context.Context, row model.SheetRow) (uint32, error) {
	if !g.enabled() {
		return 0, errDisabled
	}
	endpoint := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=USER_ENTERED",
		g.BaseURL, url.PathEscape(g.SpreadsheetID), url.PathEscape("Sheet1!A:J"))
	body := map[string]interface{}{"values": [][]interface{}{rowValues(row)}}
	var out struct {
		Updates struct {
			UpdatedRange string `json:"updatedRange"`
		} `json:"updates"`
	}
	if err := g.do(ctx, http.MethodPost, endpoint, body, &out); err != nil {
		return 0, err
	}
	n, err := parseRowNumber(out.Updates.UpdatedRange)
	if err != nil {
		log.Printf("sheets-sync: cannot parse updatedRange %q: %v", out.Updates.UpdatedRange, err)
		return 0, err
	}
	return n, nil
}

// UpdateRow rewrites a previously appended row in place.
func (g *GoogleSheets) UpdateRow(ctx context.Context, rowNum uint32, row model.SheetRow) error {
	if !g.enabled() {
		return errDisabled
	}
	rng := fmt.Sprintf("Sheet1!A%d:J%d", rowNum, rowNum)
	endpoint := fmt.Sprintf("%s/%s/values/%s?valueInputOption=USER_ENTERED",
		g.BaseURL, url.PathEscape(g.SpreadsheetID), url.PathEscape(rng))
	body := map[string]interface{}{"values": [][]interface{}{rowValues(row)}}
	return g.do(ctx, http.MethodPut, endpoint, body, nil)
}

// DeleteRow removes a row from the ledger. The rows below shift up by
// one; callers must renumber their stored row pointers accordingly.
func (g *GoogleSheets) DeleteRow(ctx context.Context, rowNum uint32) error {
	if !g.enabled() {
		return errDisabled
	}
	endpoint := fmt.Sprintf("%s/%s:batchUpdate", g.BaseURL, url.PathEscape(g.SpreadsheetID))
	body := map[string]interface{}{
		"requests": []map[string]interface{}{{
			"deleteDimension": map[string]interface{}{
				"range": map[string]interface{}{
					"sheetId":    0,
					"dimension":  "ROWS",
					"startIndex": rowNum - 1, // API uses zero-based, end-exclusive indexes
					"endIndex":   rowNum,
				},
			},
		}},
	}
	return g.do(ctx, http.MethodPost, endpoint, body, nil)
}

// parseRowNumber extracts the trailing row number from an A1-notation
// range like "Sheet1!A7:J7".
func parseRowNumber(rng string) (uint32, error) {
	idx := strings.LastIndexAny(rng, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	if idx < 0 || idx+1 >= len(rng) {
		return 0, fmt.Errorf("no row number in range %q", rng)
	}
	n, err := strconv.ParseUint(rng[idx+1:], 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func (g *GoogleSheets) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		log.Printf("sheets-sync: %s %s failed: %v", method, endpoint, err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("sheets-sync: %s %s -> %d: %s", method, endpoint, resp.StatusCode, b)
		return fmt.Errorf("sheets api status %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

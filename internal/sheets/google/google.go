// Package google writes report tabs to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"sicof/internal/cache"
	ports "sicof/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	sheetIDCacheSize = 64
	sheetIDCacheTTL  = 10 * time.Minute
	// clearRange covers every column a report can use.
	clearRange = "A:ZZ"
)

// Config selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// sheetIDs maps tab titles to numeric sheet ids.
	sheetIDs *cache.LRUCache[int64]
}

var _ ports.ReportWriter = (*Client)(nil)

// New authenticates with a service account and returns a client bound to
// cfg.SpreadsheetID.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetIDs:      cache.NewLRUCache[int64](sheetIDCacheSize, sheetIDCacheTTL),
	}
}

// SheetIDCache exposes the tab id cache so a cache.Manager can purge it.
func (c *Client) SheetIDCache() *cache.LRUCache[int64] {
	return c.sheetIDs
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when cfg names none.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(cfg.CredentialsFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// WriteReport clears tab, creating it when missing, and writes records from
// A1. Values are written RAW so amounts and codes are not reinterpreted.
func (c *Client) WriteReport(ctx context.Context, tab string, records [][]string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if _, err := c.ensureSheet(ctx, tab); err != nil {
		return err
	}

	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, a1(tab, clearRange), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		// the tab may have been deleted behind the cache
		c.sheetIDs.Delete(tab)
		return fmt.Errorf("clear %s: %w", tab, err)
	}
	if len(records) == 0 {
		return nil
	}

	vr := &gsheet.ValueRange{Values: toRows(records)}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1(tab, "A1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}
	slog.DebugContext(ctx, "Report tab written", "tab", tab, "rows", len(records))
	return nil
}

// ensureSheet returns the id of tab, adding the tab when the spreadsheet
// has none with that title.
func (c *Client) ensureSheet(ctx context.Context, tab string) (int64, error) {
	if id, ok := c.sheetIDs.Get(tab); ok {
		return id, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		c.sheetIDs.Set(sh.Properties.Title, sh.Properties.SheetId)
	}
	if id, ok := c.sheetIDs.Get(tab); ok {
		return id, nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("add sheet %s: %w", tab, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %s: empty reply", tab)
	}
	id := resp.Replies[0].AddSheet.Properties.SheetId
	c.sheetIDs.Set(tab, id)
	slog.InfoContext(ctx, "Created report tab", "tab", tab, "sheet_id", id)
	return id, nil
}

// a1 quotes tab for A1 notation, doubling embedded quotes.
func a1(tab, cells string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + cells
}

func toRows(records [][]string) [][]interface{} {
	rows := make([][]interface{}, len(records))
	for i, r := range records {
		row := make([]interface{}, len(r))
		for j, v := range r {
			row[j] = v
		}
		rows[i] = row
	}
	return rows
}

// Package sheets keeps the ledger in a Google Sheets tab laid out exactly
// like the CSV file: header on row 1, one transaction per row.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ledger.Store = (*Client)(nil)

// Config selects the spreadsheet and credentials.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	ServiceAccountJSON string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New creates a Sheets client authenticated with a service account. Extra
// options are appended after the credentials.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	all := append([]goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID, "sheet", cfg.SheetName)
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Transactions"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

func (c *Client) rng(cells string) string {
	return fmt.Sprintf("%s!%s", c.sheetName, cells)
}

// Append writes the header into row 1 when it is empty, then appends the
// record after the last filled row.
func (c *Client) Append(ctx context.Context, r core.TransactionRecord) (string, error) {
	if c.svc == nil {
		return "", core.IOError(core.OpAppend, errors.New("sheets service not initialized"))
	}

	head, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng("A1:G1")).Context(ctx).Do()
	if err != nil {
		return "", core.IOError(core.OpAppend, fmt.Errorf("read header of %s: %w", c.sheetName, err))
	}
	if len(head.Values) == 0 {
		vr := &gsheet.ValueRange{Values: [][]any{toCells(core.Header)}}
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rng("A1:G1"), vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return "", core.IOError(core.OpAppend, fmt.Errorf("write header to %s: %w", c.sheetName, err))
		}
	}

	vr := &gsheet.ValueRange{Values: [][]any{toCells(r.Fields())}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rng("A:G"), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", core.IOError(core.OpAppend, fmt.Errorf("append to %s: %w", c.sheetName, err))
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return c.rng("A:G"), nil
}

// LoadAll reads the whole tab. An empty tab, or one that does not exist,
// means the ledger was never initialized.
func (c *Client) LoadAll(ctx context.Context) ([]core.Row, error) {
	if c.svc == nil {
		return nil, core.IOError(core.OpLoad, errors.New("sheets service not initialized"))
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng("A:G")).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, core.NotFoundError(core.OpLoad, c.sheetName)
		}
		return nil, &core.Error{
			Kind:    core.KindIOFailure,
			Op:      core.OpLoad,
			Message: fmt.Sprintf("Error reading database: %v", err),
			Err:     err,
		}
	}
	if len(resp.Values) == 0 {
		return nil, core.NotFoundError(core.OpLoad, c.sheetName)
	}
	return rowsFromValues(resp.Values), nil
}

// rowsFromValues maps a values matrix onto its first row.
func rowsFromValues(values [][]any) []core.Row {
	if len(values) == 0 {
		return []core.Row{}
	}
	header := toStrings(values[0])
	rows := make([]core.Row, 0, len(values)-1)
	for _, v := range values[1:] {
		fields := toStrings(v)
		if allBlank(fields) {
			continue
		}
		rows = append(rows, core.RowFromFields(header, fields))
	}
	return rows
}

func toCells(fields []string) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func allBlank(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return false
		}
	}
	return true
}

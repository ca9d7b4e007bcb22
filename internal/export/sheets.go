package export

import (
	"context"
	"fmt"

	"transport-register/internal/models"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

// SheetsExporter rewrites a sheet of a Google spreadsheet with the register
type SheetsExporter struct {
	srv           *sheetsv4.Service
	spreadsheetID string
	sheet         string
}

// NewSheetsExporter creates a Sheets exporter authenticated with a service account file
func NewSheetsExporter(ctx context.Context, credentialsFile, spreadsheetID, sheet string) (*SheetsExporter, error) {
	return newSheetsExporter(ctx, spreadsheetID, sheet,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
}

func newSheetsExporter(ctx context.Context, spreadsheetID, sheet string, opts ...option.ClientOption) (*SheetsExporter, error) {
	srv, err := sheetsv4.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsExporter{srv: srv, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

// Export clears the sheet and writes header plus one row per registration
func (e *SheetsExporter) Export(ctx context.Context, regs []models.Registration) (*Result, error) {
	rng := e.sheet + "!A:Z"

	_, err := e.srv.Spreadsheets.Values.Clear(e.spreadsheetID, rng, &sheetsv4.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to clear sheet: %w", err)
	}

	rows := Rows(regs)
	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		cells := make([]interface{}, len(row))
		for i, v := range row {
			cells[i] = v
		}
		values = append(values, cells)
	}

	vr := &sheetsv4.ValueRange{Values: values}
	_, err = e.srv.Spreadsheets.Values.Update(e.spreadsheetID, e.sheet+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to write sheet: %w", err)
	}

	return &Result{
		Sink: "sheets",
		URL:  "https://docs.google.com/spreadsheets/d/" + e.spreadsheetID,
		Rows: len(regs),
	}, nil
}

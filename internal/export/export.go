// Package export writes the registration register out for coordinators.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"transport-register/internal/models"
)

// Result describes where an export landed
type Result struct {
	Sink      string    `json:"sink"`
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// Exporter writes a sorted registration list to an external sink
type Exporter interface {
	Export(ctx context.Context, regs []models.Registration) (*Result, error)
}

// Header is the column order of every export
var Header = []string{
	"ID", "Full name", "Location", "Phone", "To church", "From church", "Signed in", "Signed out",
}

// Rows renders registrations as export rows, header first
func Rows(regs []models.Registration) [][]string {
	rows := make([][]string, 0, len(regs)+1)
	rows = append(rows, Header)
	for _, r := range regs {
		signedOut := ""
		if r.SignedOut {
			signedOut = r.UpdatedAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			r.ID,
			r.FullName,
			r.Location,
			r.PhoneNumber,
			strconv.Itoa(r.WorshippersToChurch),
			strconv.Itoa(r.WorshippersFromChurch),
			r.CreatedAt.Format(time.RFC3339),
			signedOut,
		})
	}
	return rows
}

// BuildCSV renders registrations as CSV
func BuildCSV(regs []models.Registration) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(Rows(regs)); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

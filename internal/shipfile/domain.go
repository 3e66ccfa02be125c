// Package shipfile moves rate templates in and out of XLSX workbooks.
package shipfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
)

type ImportOptions struct {
	Mode templatedomain.Mode
	// Replace drops in-scope templates whose keys are absent from the
	// file. Without it only keys present in the file are touched.
	Replace     bool
	Carrier     string
	ServiceCode string
	Currency    string
}

type ImportResult struct {
	ReportID          string `json:"report_id"`
	CountriesAffected int    `json:"countries_affected"`
	Created           int    `json:"created"`
	Updated           int    `json:"updated"`
	Deleted           int    `json:"deleted"`
	MappingsSet       int    `json:"mappings_set,omitempty"`
}

type ExportOptions struct {
	Mode        templatedomain.Mode
	Carrier     string
	ServiceCode string
	Search      string
}

type Service interface {
	// Import validates the whole workbook before writing anything; a
	// single bad row aborts the import with a report of every problem.
	Import(ctx context.Context, data []byte, opts ImportOptions) (*ImportResult, error)
	Export(ctx context.Context, opts ExportOptions) (*bytes.Buffer, error)
	// Sample renders a starter workbook with example rows.
	Sample(mode templatedomain.Mode) (*bytes.Buffer, error)
}

var ErrMissingZoneMapping = errors.New("missing_zone_mapping")

// RowError pinpoints one bad cell or row in an uploaded workbook.
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (e RowError) String() string {
	if e.Column != "" {
		return fmt.Sprintf("%s!%s%d: %s", e.Sheet, e.Column, e.Row, e.Message)
	}
	return fmt.Sprintf("%s row %d: %s", e.Sheet, e.Row, e.Message)
}

// ValidationReport batches every row error found during import so
// administrators can fix a file in one pass.
type ValidationReport struct {
	Errors []RowError `json:"errors"`
}

func (r *ValidationReport) Error() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.String())
	}
	return "import validation failed: " + strings.Join(msgs, "; ")
}

func (r *ValidationReport) add(sheet string, row int, column, message string) {
	r.Errors = append(r.Errors, RowError{Sheet: sheet, Row: row, Column: column, Message: message})
}

func (r *ValidationReport) empty() bool { return len(r.Errors) == 0 }

// Package sheets publishes report tables to spreadsheet tabs.
package sheets

import "context"

// ReportWriter replaces the content of one tab with records. The first
// record is the header row. Empty records clear the tab.
type ReportWriter interface {
	WriteReport(ctx context.Context, tab string, records [][]string) error
}

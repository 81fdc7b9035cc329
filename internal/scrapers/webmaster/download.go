package webmaster

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

const report_download_all = "download.all"

type runIDKey struct{}

// RunID returns the id of the bulk download ctx belongs to, processors use it
// to tag what they persist.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

type DownloadedTable struct {
	Table Table
	// empty when no processor persisted the payload
	Path string
	// size of the raw body in bytes
	Size int
	// number of materialized records, 0 when rows were never materialized
	Records int
}

type FailedTable struct {
	Table Table
	Err   error
}

// DownloadReport summarizes a bulk download.
type DownloadReport struct {
	RunID      string
	Downloaded []DownloadedTable
	// tables whose processing chain ended early, ex. an empty export
	Skipped []Table
	Failed  []FailedTable
}

// DownloadAll retrieves every table of the allow-list for the current website.
// Per-table failures are collected in the report, only missing client state
// or an expired session fails the whole run.
func (c *Client) DownloadAll(ctx context.Context) (DownloadReport, error) {
	report := DownloadReport{RunID: uuid.NewString()}
	ctx = context.WithValue(ctx, runIDKey{}, report.RunID)

	state, _ := c.snapshot()
	if err := c.requireWebsite(state); err != nil {
		return report, err
	}
	if state.dateRange.IsZero() {
		return report, PreconditionError{Field: "date range"}
	}
	if _, err := c.creds.get(); err != nil {
		return report, err
	}

	for _, table := range c.Tables() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		payload, err := c.GetTableData(ctx, table)
		if err != nil {
			report.Failed = append(report.Failed, FailedTable{Table: table, Err: err})
			c.tel.ReportWarning(report_download_all, report.RunID, table, err)
			// an expired session fails every remaining table the same way
			if errors.Is(err, ErrNotAuthenticated) {
				return report, err
			}
			continue
		}

		if payload.IsEmpty() {
			report.Skipped = append(report.Skipped, table)
			continue
		}

		downloaded := DownloadedTable{
			Table: table,
			Path:  payload.Path,
			Size:  len(payload.Body),
		}
		if payload.Rows != nil {
			downloaded.Records = len(payload.Rows.Records)
		}
		report.Downloaded = append(report.Downloaded, downloaded)
	}

	c.tel.ReportCount(report_download_all, int64(len(report.Downloaded)))
	return report, nil
}

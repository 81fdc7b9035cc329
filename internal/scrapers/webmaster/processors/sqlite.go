package processors

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"gwtdownloads/internal/components/chrono"
	"gwtdownloads/internal/scrapers/webmaster"
)

// SqliteSink stores materialized rows in a table named after the report (ex.
// TOP_QUERIES is stored in top_queries), one TEXT column per header plus the
// website and date range the rows belong to. Fields past the end of the header
// are stored in column_N columns. Storing the same website and date
// range again replaces the previous rows. The payload is passed through.
type SqliteSink struct {
	DB *sql.DB
	// recorded in the downloads table, defaults to the run id of the bulk
	// download in progress
	RunID string
	Clock chrono.API
}

var identifierRegex = regexp.MustCompile(`[^a-z0-9_]+`)

// columnName turns a report header into a sqlite identifier.
func columnName(header string, index int) string {
	name := strings.Trim(identifierRegex.ReplaceAllString(strings.ToLower(header), "_"), "_")
	if name == "" {
		return fmt.Sprintf("column_%d", index+1)
	}
	switch name {
	case "website", "date_start", "date_end":
		return "report_" + name
	}
	return name
}

// columnNames maps headers to unique identifiers, a repeated name gets the first
// free `_N` suffix.
func columnNames(header []string) []string {
	used := map[string]bool{}
	out := make([]string, len(header))
	for i, h := range header {
		base := columnName(h, i)
		name := base
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// storedHeader pads the header with unnamed columns so records with more fields
// than the header keep every value.
func storedHeader(rows *webmaster.Rows) []string {
	width := len(rows.Header)
	for _, record := range rows.Records {
		width = max(width, len(record))
	}
	header := make([]string, width)
	copy(header, rows.Header)
	return header
}

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func tableName(table webmaster.Table) string {
	return strings.ToLower(string(table))
}

func (s SqliteSink) existingColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("pragma table_info(%s)", quote(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := map[string]bool{}
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue sql.NullString
			pk        int
		)
		err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk)
		if err != nil {
			return nil, err
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

// ensureTable creates the report table or adds the columns it is missing.
func (s SqliteSink) ensureTable(ctx context.Context, tx *sql.Tx, table string, columns []string) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(
		"create table if not exists %s (website text not null, date_start text not null, date_end text not null)",
		quote(table),
	))
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	existing, err := s.existingColumns(ctx, tx, table)
	if err != nil {
		return fmt.Errorf("read columns: %w", err)
	}
	for _, c := range columns {
		if existing[c] {
			continue
		}
		_, err := tx.ExecContext(ctx, fmt.Sprintf("alter table %s add column %s text", quote(table), quote(c)))
		if err != nil {
			return fmt.Errorf("add column %s: %w", c, err)
		}
	}
	return nil
}

func (s SqliteSink) store(ctx context.Context, state webmaster.State, p webmaster.Payload) error {
	table := tableName(p.Table)
	columns := columnNames(storedHeader(p.Rows))
	dates := state.DateRange()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = s.ensureTable(ctx, tx, table, columns)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf("delete from %s where website = ? and date_start = ? and date_end = ?", quote(table)),
		state.Website(), dates.StartCompact(), dates.EndCompact(),
	)
	if err != nil {
		return fmt.Errorf("delete previous rows: %w", err)
	}

	quoted := []string{"website", "date_start", "date_end"}
	placeholders := []string{"?", "?", "?"}
	for _, c := range columns {
		quoted = append(quoted, quote(c))
		placeholders = append(placeholders, "?")
	}
	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"insert into %s (%s) values (%s)",
		quote(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "),
	))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	for _, record := range p.Rows.Records {
		args := []any{state.Website(), dates.StartCompact(), dates.EndCompact()}
		for i := range columns {
			// ragged records are padded with nulls
			if i < len(record) {
				args = append(args, record[i])
				continue
			}
			args = append(args, nil)
		}
		_, err := insert.ExecContext(ctx, args...)
		if err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}

	clock := s.Clock
	if clock == nil {
		clock = chrono.NewStandardImpl()
	}
	runID := s.RunID
	if runID == "" {
		runID = webmaster.RunID(ctx)
	}
	_, err = tx.ExecContext(ctx,
		"insert into downloads (run_id, website, table_name, date_start, date_end, records, downloaded_at) values (?, ?, ?, ?, ?, ?, ?)",
		runID, state.Website(), table, dates.StartCompact(), dates.EndCompact(), len(p.Rows.Records), clock.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record download: %w", err)
	}

	return tx.Commit()
}

func (s SqliteSink) Process(ctx context.Context, state webmaster.State, p webmaster.Payload) (webmaster.Payload, error) {
	if p.Rows == nil {
		return webmaster.Payload{}, ErrRowsNotMaterialized
	}
	err := s.store(ctx, state, p)
	if err != nil {
		return webmaster.Payload{}, fmt.Errorf("%s: %w", p.Table, err)
	}
	return p, nil
}

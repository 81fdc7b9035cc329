package processors

import (
	"context"
	"errors"

	"gwtdownloads/internal/scrapers/webmaster"
)

var ErrRowsNotMaterialized = errors.New("processors: rows were not materialized, add a RowMaterializer first")

// ColumnFilter drops columns from materialized rows. A column is dropped when
// its header is in Names or its position is in Indexes.
type ColumnFilter struct {
	Names   []string
	Indexes []int
}

func (f ColumnFilter) dropped(header []string) map[int]bool {
	drop := map[int]bool{}
	for _, i := range f.Indexes {
		drop[i] = true
	}
	for _, name := range f.Names {
		for i, h := range header {
			if h == name {
				drop[i] = true
			}
		}
	}
	return drop
}

func keep(record []string, drop map[int]bool) []string {
	out := make([]string, 0, len(record))
	for i, v := range record {
		if drop[i] {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (f ColumnFilter) Process(_ context.Context, _ webmaster.State, p webmaster.Payload) (webmaster.Payload, error) {
	if p.Rows == nil {
		return webmaster.Payload{}, ErrRowsNotMaterialized
	}
	drop := f.dropped(p.Rows.Header)

	filtered := &webmaster.Rows{
		Header:  keep(p.Rows.Header, drop),
		Records: make([][]string, len(p.Rows.Records)),
	}
	for i, record := range p.Rows.Records {
		filtered.Records[i] = keep(record, drop)
	}

	p.Rows = filtered
	// the raw body no longer matches the rows
	p.Body = nil
	return p, nil
}

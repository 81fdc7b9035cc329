package processors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gwtdownloads/internal/components/chrono"
	"gwtdownloads/internal/scrapers/webmaster"

	"github.com/xuri/excelize/v2"
)

const DefaultXlsxTemplate = "{website}-{tableName}-{dateStart}-{dateEnd}.xlsx"

// XlsxWriter saves materialized rows as a single sheet workbook, it accepts the
// same placeholders as FileWriter. The payload path is only set when no earlier
// processor persisted the payload, so a FileWriter before it keeps its CSV
// path. Empty rows end the chain like an empty export does for FileWriter.
type XlsxWriter struct {
	SavePath   string
	Template   string
	DateFormat string
	Clock      chrono.API
}

func (w XlsxWriter) template() fileTemplate {
	t := fileTemplate(w)
	if t.Template == "" {
		t.Template = DefaultXlsxTemplate
	}
	return t
}

func toCells(record []string) []any {
	cells := make([]any, len(record))
	for i, v := range record {
		cells[i] = v
	}
	return cells
}

func writeWorkbook(path string, rows *webmaster.Rows) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	all := append([][]string{rows.Header}, rows.Records...)
	for i, record := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(record)); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func (w XlsxWriter) Process(_ context.Context, state webmaster.State, p webmaster.Payload) (webmaster.Payload, error) {
	if p.Rows == nil {
		return webmaster.Payload{}, ErrRowsNotMaterialized
	}
	if len(p.Rows.Header) == 0 && len(p.Rows.Records) == 0 {
		return webmaster.Payload{}, nil
	}

	path, err := w.template().resolve(state, p.Table)
	if err != nil {
		return webmaster.Payload{}, err
	}
	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return webmaster.Payload{}, fmt.Errorf("create directory: %w", err)
	}
	err = writeWorkbook(path, p.Rows)
	if err != nil {
		return webmaster.Payload{}, fmt.Errorf("write %s: %w", path, err)
	}

	if p.Path == "" {
		p.Path = path
	}
	return p, nil
}

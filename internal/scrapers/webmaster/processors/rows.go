// Package processors holds the payload transformers that can be chained onto a
// webmaster client.
package processors

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"gwtdownloads/internal/scrapers/webmaster"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseRows reads a console csv export: comma separated, first record is the
// header, quoting is lenient and records may be ragged.
func ParseRows(body []byte) (*webmaster.Rows, error) {
	body = bytes.TrimPrefix(body, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(body))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows := &webmaster.Rows{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse rows: %w", err)
		}
		if rows.Header == nil {
			rows.Header = record
			continue
		}
		rows.Records = append(rows.Records, record)
	}
	return rows, nil
}

// EncodeRows writes rows back into the csv form ParseRows reads.
func EncodeRows(rows *webmaster.Rows) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if len(rows.Header) > 0 {
		if err := writer.Write(rows.Header); err != nil {
			return nil, err
		}
	}
	if err := writer.WriteAll(rows.Records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RowMaterializer parses the raw body into rows.
type RowMaterializer struct{}

func (RowMaterializer) Process(_ context.Context, _ webmaster.State, p webmaster.Payload) (webmaster.Payload, error) {
	rows, err := ParseRows(p.Body)
	if err != nil {
		return webmaster.Payload{}, fmt.Errorf("%s: %w", p.Table, err)
	}
	p.Rows = rows
	return p, nil
}

// Package contacts loads offline contact exports and matches prospects
// against them.
package contacts

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/warmline/internal/model"
)

// headerVariants maps each contact field to the header spellings seen in
// LinkedIn connection exports.
var headerVariants = map[string][]string{
	"first":     {"first name"},
	"last":      {"last name"},
	"email":     {"email address"},
	"company":   {"company"},
	"position":  {"position"},
	"url":       {"url", "linkedin profile url"},
	"connected": {"connected on"},
}

// Load reads a contact export. CSV and XLSX files are supported.
func Load(path string) ([]model.Contact, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return loadXLSX(path)
	case ".csv", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "contacts: open csv")
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	default:
		return nil, eris.Errorf("contacts: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadCSV parses a CSV contact export. Preamble lines before the header row
// (LinkedIn prepends a notes block) are skipped.
func ReadCSV(r io.Reader) ([]model.Contact, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "contacts: read csv row")
		}
		rows = append(rows, record)
	}
	return fromRows(rows)
}

func loadXLSX(path string) ([]model.Contact, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "contacts: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("contacts: xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) ([]model.Contact, error) {
	headerIdx := -1
	var cols map[string]int
	for i, row := range rows {
		if c := columnIndex(row); c != nil {
			headerIdx, cols = i, c
			break
		}
	}
	if headerIdx < 0 {
		return nil, eris.New("contacts: no header row with first and last name columns")
	}

	var out []model.Contact
	for _, row := range rows[headerIdx+1:] {
		get := func(field string) string {
			i, ok := cols[field]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		c := model.Contact{
			FirstName:   get("first"),
			LastName:    get("last"),
			Email:       get("email"),
			Company:     get("company"),
			Position:    get("position"),
			URL:         get("url"),
			ConnectedOn: get("connected"),
		}
		if c.FirstName == "" && c.LastName == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// columnIndex returns the field positions for a header row, or nil when the
// row is not a header.
func columnIndex(row []string) map[string]int {
	cols := make(map[string]int)
	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
		for field, variants := range headerVariants {
			for _, v := range variants {
				if name == v {
					if _, seen := cols[field]; !seen {
						cols[field] = i
					}
				}
			}
		}
	}
	if _, ok := cols["first"]; !ok {
		return nil
	}
	if _, ok := cols["last"]; !ok {
		return nil
	}
	return cols
}

// Package dataset loads the static Census, NDCP and ZIP-county extracts used by
// the batch enrichment jobs. Files are read wholesale per run.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing column")

// Table is a header plus string rows, independent of file format.
type Table struct {
	Path   string
	header map[string]int
	Rows   [][]string
}

// Open reads a .csv or .xlsx file. XLSX files are read from their first sheet.
// Header names are matched case-insensitively.
func Open(path string) (*Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	default:
		return nil, fmt.Errorf("dataset %s: unsupported extension", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset %s: empty", path)
	}
	return newTable(path, rows[0], rows[1:]), nil
}

func newTable(path string, header []string, rows [][]string) *Table {
	t := &Table{Path: path, header: make(map[string]int, len(header)), Rows: rows}
	for i, h := range header {
		key := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := t.header[key]; !dup {
			t.header[key] = i
		}
	}
	return t
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// Has reports whether the table has a column.
func (t *Table) Has(name string) bool {
	_, ok := t.header[strings.ToUpper(name)]
	return ok
}

// Require returns ErrMissingColumn naming the first absent column.
func (t *Table) Require(names ...string) error {
	for _, n := range names {
		if !t.Has(n) {
			return fmt.Errorf("%s: %w %q", t.Path, ErrMissingColumn, n)
		}
	}
	return nil
}

// Get returns the trimmed cell for column name in row, or "" when the row is short.
func (t *Table) Get(row []string, name string) string {
	i, ok := t.header[strings.ToUpper(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Number parses a Census-style numeric cell. Thousands separators and trailing
// "+" are stripped; placeholders such as "-", "N" and "(X)" are reported as absent.
func Number(cell string) (float64, bool) {
	cleaned := strings.NewReplacer(",", "", "+", "", "$", "").Replace(strings.TrimSpace(cell))
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

package recipients

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/botify-mailer/botify/internal/apperr"
)

// AllowedExtensions are the upload extensions accepted for recipient lists.
var AllowedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

// Extract reads the uploaded spreadsheet at path and returns the unique,
// trimmed addresses found in its "Email" column (matched case-insensitively),
// preserving first-seen order. No address-format validation is applied.
//
// An unreadable or undecodable file yields a *apperr.ParseError. A readable
// file without usable addresses yields an empty slice and nil error; the
// caller decides how to surface that.
func Extract(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return extractCSV(path)
	default:
		return extractWorkbook(path)
	}
}

func extractCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &apperr.ParseError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, &apperr.ParseError{Path: path, Err: err}
	}
	emailIdx := emailColumn(header)

	out := newCollector()
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &apperr.ParseError{Path: path, Err: err}
		}
		if emailIdx < 0 || emailIdx >= len(record) {
			continue
		}
		out.add(record[emailIdx])
	}
	return out.list, nil
}

// extractWorkbook handles .xlsx (and .xls attempts; legacy BIFF files fail
// to decode and surface as a ParseError). Only the first sheet is read.
func extractWorkbook(path string) ([]string, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &apperr.ParseError{Path: path, Err: err}
	}
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, &apperr.ParseError{Path: path, Err: err}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	emailIdx := emailColumn(rows[0])
	out := newCollector()
	for _, row := range rows[1:] {
		if emailIdx < 0 || emailIdx >= len(row) {
			continue
		}
		out.add(row[emailIdx])
	}
	return out.list, nil
}

// emailColumn returns the index of the first header matching "email"
// case-insensitively, or -1. A UTF-8 BOM is stripped before matching:
// Excel's "CSV UTF-8" export prefixes one to the first header cell.
func emailColumn(header []string) int {
	for i, h := range header {
		h = strings.TrimPrefix(h, "\uFEFF")
		if strings.EqualFold(strings.TrimSpace(h), "email") {
			return i
		}
	}
	return -1
}

// collector deduplicates by exact string match after trimming, keeping
// first-seen order.
type collector struct {
	seen map[string]bool
	list []string
}

func newCollector() *collector {
	return &collector{seen: make(map[string]bool), list: []string{}}
}

func (c *collector) add(raw string) {
	addr := strings.TrimSpace(raw)
	if addr == "" || c.seen[addr] {
		return
	}
	c.seen[addr] = true
	c.list = append(c.list, addr)
}

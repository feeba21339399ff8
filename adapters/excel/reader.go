package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"datalens/domain/record"
)

// WorkbookSource reads per-domain record collections from a single xlsx
// workbook: one sheet per domain, first row headers, first column the
// record key. Sheets whose names are not known domains are skipped. CSV
// files (one per domain, named <domain>.csv in a directory) are accepted
// too, so exported datasets round-trip without conversion.
type WorkbookSource struct {
	path   string
	isCSV  bool
	keyCol string // override; empty means first column
}

// NewWorkbookSource creates a source over an .xlsx file or a directory of
// per-domain .csv files.
func NewWorkbookSource(path string) *WorkbookSource {
	info, err := os.Stat(path)
	isCSV := err == nil && info.IsDir()
	return &WorkbookSource{path: path, isCSV: isCSV}
}

// WithKeyColumn forces a specific header to act as the record key instead
// of the first column.
func (s *WorkbookSource) WithKeyColumn(name string) *WorkbookSource {
	s.keyCol = name
	return s
}

// Domains lists the known domains the workbook actually contains.
func (s *WorkbookSource) Domains(ctx context.Context) ([]record.Domain, error) {
	if s.isCSV {
		return s.csvDomains()
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var domains []record.Domain
	for _, sheet := range f.GetSheetList() {
		d := record.Domain(strings.ToLower(strings.TrimSpace(sheet)))
		if d.IsKnown() {
			domains = append(domains, d)
		}
	}
	return domains, nil
}

// Collection loads every record from the domain's sheet.
func (s *WorkbookSource) Collection(ctx context.Context, domain record.Domain) (record.Collection, error) {
	rows, err := s.rowsFor(domain)
	if err != nil {
		return record.Collection{}, err
	}
	if len(rows) < 2 {
		return record.Collection{}, fmt.Errorf("domain %s needs a header row and at least one data row", domain)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	keyIdx, err := s.keyIndex(headers)
	if err != nil {
		return record.Collection{}, fmt.Errorf("domain %s: %w", domain, err)
	}

	coll := record.Collection{Domain: domain}
	for _, row := range rows[1:] {
		if keyIdx >= len(row) || strings.TrimSpace(row[keyIdx]) == "" {
			continue
		}
		rec := record.DomainRecord{
			Domain: domain,
			Key:    strings.TrimSpace(row[keyIdx]),
			Fields: make(map[string]interface{}, len(headers)),
		}
		for j, cell := range row {
			if j >= len(headers) || j == keyIdx {
				continue
			}
			rec.Fields[headers[j]] = coerceCell(strings.TrimSpace(cell))
		}
		coll.Records = append(coll.Records, rec)
	}

	if err := coll.Validate(); err != nil {
		return record.Collection{}, err
	}
	return coll, nil
}

func (s *WorkbookSource) rowsFor(domain record.Domain) ([][]string, error) {
	if s.isCSV {
		return s.csvRows(domain)
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := s.sheetFor(f, domain)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheet for domain %s", domain)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func (s *WorkbookSource) sheetFor(f *excelize.File, domain record.Domain) string {
	for _, sheet := range f.GetSheetList() {
		if strings.EqualFold(strings.TrimSpace(sheet), domain.String()) {
			return sheet
		}
	}
	return ""
}

func (s *WorkbookSource) csvDomains() ([]record.Domain, error) {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var domains []record.Domain
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		d := record.Domain(strings.ToLower(name))
		if d.IsKnown() {
			domains = append(domains, d)
		}
	}
	return domains, nil
}

func (s *WorkbookSource) csvRows(domain record.Domain) ([][]string, error) {
	path := filepath.Join(s.path, domain.String()+".csv")
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func (s *WorkbookSource) keyIndex(headers []string) (int, error) {
	if s.keyCol == "" {
		if len(headers) == 0 {
			return 0, fmt.Errorf("no header row")
		}
		return 0, nil
	}
	for i, h := range headers {
		if strings.EqualFold(h, s.keyCol) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("key column %q not found", s.keyCol)
}

// coerceCell turns numeric-looking cells into float64 so downstream
// series extraction does not depend on how the sheet was typed.
func coerceCell(cell string) interface{} {
	if cell == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}

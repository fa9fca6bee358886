package dataset

import (
	"bytes"
	"fmt"

	"dataagent/internal/util"

	"github.com/xuri/excelize/v2"
)

// ReadExcel reads one sheet of an .xlsx workbook; the first row is the header.
func ReadExcel(name string, data []byte, sheet string) (*Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, util.ErrEmptyDataset
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if !contains(sheets, sheet) {
		return nil, fmt.Errorf("%w: %q", util.ErrUnknownSheet, sheet)
	}

	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	start := 0
	for start < len(raw) && isBlankRecord(raw[start]) {
		start++
	}
	if start >= len(raw) {
		return nil, util.ErrEmptyDataset
	}
	columns := normalizeHeaders(raw[start])
	rows := make([][]Value, 0, len(raw)-start-1)
	for _, record := range raw[start+1:] {
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, rowFromStrings(record, len(columns)))
	}
	if len(rows) == 0 {
		return nil, util.ErrEmptyDataset
	}
	return &Dataset{
		Name:    name,
		Kind:    KindExcel,
		Sheet:   sheet,
		Sheets:  sheets,
		Columns: columns,
		Rows:    rows,
	}, nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

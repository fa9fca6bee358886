package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"dataagent/internal/util"
)

// ReadCSV parses a header row followed by records. Short records are padded
// and long ones truncated to the header width.
func ReadCSV(name string, data []byte) (*Dataset, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, util.ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := normalizeHeaders(headers)

	rows := make([][]Value, 0)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, rowFromStrings(record, len(columns)))
	}
	if len(rows) == 0 {
		return nil, util.ErrEmptyDataset
	}
	return &Dataset{Name: name, Kind: KindCSV, Columns: columns, Rows: rows}, nil
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	seen := map[string]int{}
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h = fmt.Sprintf("%s_%d", h, n+1)
		} else {
			seen[h] = 1
		}
		out[i] = h
	}
	return out
}

func rowFromStrings(record []string, width int) []Value {
	row := make([]Value, width)
	for i := 0; i < width; i++ {
		if i < len(record) {
			row[i] = ParseValue(record[i])
		} else {
			row[i] = Text("")
		}
	}
	return row
}

func isBlankRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

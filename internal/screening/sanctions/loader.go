package sanctions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var requiredColumns = []string{"name"}

// LoadCSV reads a sanctions list from a CSV file with a header row containing
// at least "name"; "country", "list_source" and "type" are optional.
func LoadCSV(path string) (List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sanctions list: %w", err)
	}
	defer f.Close()
	return ParseCSV(f)
}

// ParseCSV parses a sanctions list. Rows with an empty name are skipped.
func ParseCSV(r io.Reader) (List, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("sanctions list is empty")
		}
		return nil, fmt.Errorf("read sanctions header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("sanctions list missing %q column", c)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var list List
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sanctions row %d: %w", line, err)
		}
		name := field(row, "name")
		if name == "" {
			continue
		}
		list = append(list, Entry{
			Name:       name,
			Country:    strings.ToUpper(field(row, "country")),
			ListSource: field(row, "list_source"),
			Type:       field(row, "type"),
		})
	}
	return list, nil
}

package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// row is one data line of a CSV file with its fields trimmed.
type row struct {
	line   int
	fields []string
}

// table is a CSV file read whole. Columns are addressed by header name.
type table struct {
	name   string
	header map[string]int
	rows   []row
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	t := &table{name: path, header: make(map[string]int, len(header))}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		t.header[strings.TrimSpace(name)] = i
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		line, _ := r.FieldPos(0)
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		t.rows = append(t.rows, row{line: line, fields: record})
	}
	return t, nil
}

// column returns the index of a named column, or an error naming the file.
func (t *table) column(name string) (int, error) {
	i, ok := t.header[name]
	if !ok {
		return 0, fmt.Errorf("%s: missing column %q", t.name, name)
	}
	return i, nil
}

func (t *table) rowError(r row, err error) error {
	return fmt.Errorf("%s:%d: %w", t.name, r.line, err)
}

func (r row) field(i int) string {
	if i < 0 || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// splitNames splits a comma separated list, dropping blanks and duplicates.
// Names come back sorted.
func splitNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"reflect"
	"strconv"

	"sicof/internal/core"
)

// ToRecords turns rows into CSV records: a header from the csv tags of the
// row type followed by one record per row. Zero rows is ErrEmptyReport.
func ToRecords[T any](rows []T) ([][]string, error) {
	if len(rows) == 0 {
		return nil, core.ErrEmptyReport
	}
	t := reflect.TypeOf(rows[0])
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("report rows must be structs, got %s", t.Kind())
	}
	header := make([]string, 0, t.NumField())
	var fields []int
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("csv")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		header = append(header, name)
		fields = append(fields, i)
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	for _, row := range rows {
		v := reflect.ValueOf(row)
		record := make([]string, len(fields))
		for j, i := range fields {
			record[j] = cell(v.Field(i))
		}
		records = append(records, record)
	}
	return records, nil
}

func cell(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	default:
		return fmt.Sprint(v.Interface())
	}
}

// WriteCSV writes rows as RFC 4180 CSV: values holding a comma, quote or
// newline are quoted and embedded quotes doubled.
func WriteCSV[T any](w io.Writer, rows []T) error {
	records, err := ToRecords(rows)
	if err != nil {
		return err
	}
	return WriteRecords(w, records)
}

func WriteRecords(w io.Writer, records [][]string) error {
	if len(records) == 0 {
		return core.ErrEmptyReport
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

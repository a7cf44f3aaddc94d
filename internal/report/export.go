package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"donor-crm/internal/domain"
)

const FormatCSV = "csv"

// Export serializes tables in format. Only CSV is supported.
func Export(w io.Writer, format string, tables []Table) error {
	switch format {
	case "", FormatCSV:
		return WriteCSV(w, tables)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
}

// WriteCSV writes each table as a "# <title>" line, a header and its rows,
// with a blank line between tables.
func WriteCSV(w io.Writer, tables []Table) error {
	cw := csv.NewWriter(w)
	for i, t := range tables {
		// section lines bypass the csv writer
		cw.Flush()
		sep := "# %s\n"
		if i > 0 {
			sep = "\n" + sep
		}
		if _, err := fmt.Fprintf(w, sep, t.Title); err != nil {
			return err
		}
		if err := cw.Write(t.Columns); err != nil {
			return err
		}
		record := make([]string, len(t.Columns))
		for _, row := range t.Rows {
			for j, col := range t.Columns {
				record[j] = formatCell(row[col])
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

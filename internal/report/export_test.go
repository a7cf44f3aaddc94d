package report

import (
	"bytes"
	"testing"

	"donor-crm/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	tables := []Table{
		{
			Title:   "By month",
			Columns: []string{"key", "sumAmount", "count"},
			Rows: []Row{
				{"key": "2026-01", "sumAmount": 150.5, "count": int64(2)},
				{"key": "2026-02", "sumAmount": 20.0, "count": int64(1)},
			},
		},
		{
			Title:   "Donors",
			Columns: []string{"Donor Name", "City"},
			Rows:    []Row{{"Donor Name": "Asha, Rao", "City": nil}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tables))

	want := "# By month\n" +
		"key,sumAmount,count\n" +
		"2026-01,150.5,2\n" +
		"2026-02,20,1\n" +
		"\n" +
		"# Donors\n" +
		"Donor Name,City\n" +
		"\"Asha, Rao\",\n"
	assert.Equal(t, want, buf.String())
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Export(&buf, "xlsx", nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

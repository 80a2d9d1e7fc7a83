package parsers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"growth-analyzer/pkg/errors"
)

// writeTempFile creates name inside a per-test directory
func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestFormatFromName(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		ok     bool
	}{
		{"gold.xlsx", FormatXLSX, true},
		{"GOLD.XLSX", FormatXLSX, true},
		{"legacy.xls", FormatXLS, true},
		{"pending.csv", FormatCSV, true},
		{"pending.tsv", FormatTSV, true},
		{"report.pdf", "", false},
		{"noextension", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, ok := FormatFromName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.format, format)
		})
	}
}

func TestReadCSV(t *testing.T) {
	content := " BRANCH NAME ,PRINCIPAL OS,DUE DAYS\n" +
		"A,\"1,000\",10\n" +
		",,\n" +
		"B,2500\n"

	table, err := NewReader(nil).Read(strings.NewReader(content), "pending.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"BRANCH NAME", "PRINCIPAL OS", "DUE DAYS"}, table.Columns)
	require.Equal(t, 2, table.Len())

	amount, ok := table.Rows[0].Get("PRINCIPAL OS").Decimal()
	require.True(t, ok)
	assert.Equal(t, "1000", amount.String())

	assert.Equal(t, "B", table.Rows[1].Get("BRANCH NAME").String())
	assert.True(t, table.Rows[1].Get("DUE DAYS").IsNull())
}

func TestReadTSV(t *testing.T) {
	content := "CANVASSER ID\tBRANCH NAME\tPRINCIPAL OS\nS1\tA\t1000\n"

	table, err := NewReader(nil).Read(strings.NewReader(content), "gold.tsv")
	require.NoError(t, err)

	require.Equal(t, 1, table.Len())
	assert.Equal(t, "S1", table.Rows[0].Get("CANVASSER ID").String())
}

func TestReadCSVWindows1252(t *testing.T) {
	// 0xE9 is e-acute in Windows-1252 and invalid as UTF-8 on its own
	content := []byte("CUSTOMER NAME,PRINCIPAL OS\nRen\xe9,100\n")

	table, err := NewReader(nil).Read(strings.NewReader(string(content)), "pending.csv")
	require.NoError(t, err)

	require.Equal(t, 1, table.Len())
	assert.Equal(t, "René", table.Rows[0].Get("CUSTOMER NAME").String())
}

func TestReadDuplicateAndBlankHeaders(t *testing.T) {
	content := "NAME,,NAME\nx,y,z\n"

	table, err := NewReader(nil).Read(strings.NewReader(content), "dup.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"NAME", "Unnamed: 1", "NAME.1"}, table.Columns)
	assert.Equal(t, "z", table.Rows[0].Get("NAME.1").String())
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"BRANCH NAME", "PRINCIPAL OS"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"A", 1500}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"B", 250.5}))

	path := filepath.Join(t.TempDir(), "gold.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := NewReader(nil).ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"BRANCH NAME", "PRINCIPAL OS"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "1500", table.Rows[0].Get("PRINCIPAL OS").DecimalOrZero().String())
	assert.Equal(t, "250.5", table.Rows[1].Get("PRINCIPAL OS").DecimalOrZero().String())
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T) string
		category errors.ErrorCategory
		code     errors.ErrorCode
	}{
		{
			name: "unsupported format",
			setup: func(t *testing.T) string {
				return writeTempFile(t, "report.pdf", []byte("%PDF"))
			},
			category: errors.CategoryFile,
			code:     errors.CodeUnsupportedFormat,
		},
		{
			name: "missing file",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent.csv")
			},
			category: errors.CategoryFile,
			code:     errors.CodeFileNotFound,
		},
		{
			name: "empty file",
			setup: func(t *testing.T) string {
				return writeTempFile(t, "empty.csv", []byte("\n\n"))
			},
			category: errors.CategoryValidation,
			code:     errors.CodeEmptyFile,
		},
		{
			name: "corrupt workbook",
			setup: func(t *testing.T) string {
				return writeTempFile(t, "broken.xlsx", []byte("not a zip"))
			},
			category: errors.CategoryFile,
			code:     errors.CodeFileCorrupted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(nil).ReadFile(tt.setup(t))
			require.Error(t, err)

			analyzerErr, ok := errors.AsAnalyzerError(err)
			require.True(t, ok)
			assert.Equal(t, tt.category, analyzerErr.Category)
			assert.Equal(t, tt.code, analyzerErr.Code)
		})
	}
}

func TestReadRejectsOversizedInput(t *testing.T) {
	reader := NewReader(&ReadConfig{MaxFileSize: 10})

	_, err := reader.Read(strings.NewReader("A,B\n1,2\n3,4\n"), "big.csv")
	require.Error(t, err)

	analyzerErr, ok := errors.AsAnalyzerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryValidation, analyzerErr.Category)
}

package parsers

import (
	"bytes"
	"fmt"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// readXLSX returns the cell text of the configured worksheet. Raw cell values
// are used so dates come through as serial numbers rather than in whatever
// display format the workbook carries.
func (r *Reader) readXLSX(data []byte, name string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if r.config.SheetIndex >= len(sheets) {
		return nil, errors.ValidationError(errors.CodeEmptyFile, name, "no worksheet", nil)
	}
	sheet := sheets[r.config.SheetIndex]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, name, err)
	}

	r.logger.WithFields(logger.Fields{
		"file_name": name,
		"sheet":     sheet,
		"rows":      len(rows),
	}).Debug("Read xlsx worksheet")

	return rows, nil
}

// readXLS returns the cell text of the configured worksheet of a legacy workbook
func (r *Reader) readXLS(data []byte, name string) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, name, err)
	}

	sheet, err := workbook.GetSheet(r.config.SheetIndex)
	if err != nil || sheet == nil {
		return nil, errors.ValidationError(errors.CodeEmptyFile, name, "no worksheet", err)
	}

	var rows [][]string
	for i := 0; i <= int(sheet.GetNumberRows()); i++ {
		row, err := sheet.GetRow(i)
		if err != nil || row == nil {
			continue
		}

		var record []string
		for _, col := range row.GetCols() {
			if col != nil {
				record = append(record, col.GetString())
			} else {
				record = append(record, "")
			}
		}
		rows = append(rows, record)
	}

	r.logger.WithFields(logger.Fields{
		"file_name": name,
		"sheet":     fmt.Sprintf("#%d", r.config.SheetIndex),
		"rows":      len(rows),
	}).Debug("Read xls worksheet")

	return rows, nil
}

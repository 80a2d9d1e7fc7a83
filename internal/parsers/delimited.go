package parsers

import (
	"bytes"
	"encoding/csv"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"growth-analyzer/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readDelimited parses CSV or TSV content. Content that is not valid UTF-8
// is decoded as Windows-1252, the encoding spreadsheet exports fall back to.
func (r *Reader) readDelimited(data []byte, name string, delimiter rune) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		r.logger.WithField("file_name", name).Debug("Input is not UTF-8, decoding as Windows-1252")
		src = transform.NewReader(src, charmap.Windows1252.NewDecoder())
	}

	reader := csv.NewReader(src)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		line := 0
		var csvErr *csv.ParseError
		if errors.As(err, &csvErr) {
			line = csvErr.Line
		}
		return nil, errors.ParseError(errors.CodeInvalidFormat, name, line, err)
	}

	return records, nil
}

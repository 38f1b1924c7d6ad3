package main

import (
	"encoding/csv"
	"errors"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type csvRow struct {
	Number int
	Fields []string
	Err    error
}

// readCSVRows splits the upload into rows. Field counts are not enforced here so a
// malformed row can be reported against its line number. Blank lines are skipped and
// a leading byte order mark, as written by Excel, is dropped.
func readCSVRows(src io.Reader, rowFunc func(row csvRow)) error {
	csvReader := csv.NewReader(transform.NewReader(src, unicode.UTF8BOM.NewDecoder()))
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true
	for {
		rec, err := csvReader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rowFunc(csvRow{Number: parseErr.StartLine, Err: err})
				continue
			}
			return err
		}
		lineNum, _ := csvReader.FieldPos(0)
		rowFunc(csvRow{Number: lineNum, Fields: rec})
	}
}

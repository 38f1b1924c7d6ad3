package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivityLog(t *testing.T) {
	actLog := newActivityLog()
	assert.Equal(t, "", actLog.String())

	type hookCall struct {
		line   string
		failed bool
	}
	calls := make([]hookCall, 0)
	actLog.onEntry = func(line string, failed bool) {
		calls = append(calls, hookCall{line, failed})
	}

	actLog.add(false, "Header row %d skipped", 1)
	e := actLog.entry("%s:", "TU001")
	e.info("Updated %d fields", 2)
	e.requestFailed("Problem with posting", &RequestError{Kind: StatusError, StatusCode: 409, Message: "conflict"})
	e.commit()
	e.commit()

	assert.Equal(t, 2, actLog.Len())
	assert.Equal(t, "Header row 1 skipped\nTU001: Updated 2 fields Problem with posting (status error 409: conflict)\n", actLog.String())
	assert.Equal(t, []hookCall{
		{"Header row 1 skipped", false},
		{"TU001: Updated 2 fields Problem with posting (status error 409: conflict)", true},
	}, calls)
}

func TestReadCSVRows(t *testing.T) {
	src := "title,pid,a,b,c,d,e,f,g\n\nTitle,TU001,,,,,,,\n\"quoted, title\",TU002,,,,,,,\nshort,row\n"
	rows := make([]csvRow, 0)
	err := readCSVRows(strings.NewReader(src), func(row csvRow) {
		rows = append(rows, row)
	})
	assert.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, 1, rows[0].Number)
	assert.Equal(t, 3, rows[1].Number)
	assert.Equal(t, "TU001", rows[1].Fields[1])
	assert.Equal(t, "quoted, title", rows[2].Fields[0])
	assert.Len(t, rows[2].Fields, 9)
	assert.Equal(t, 5, rows[3].Number)
	assert.Len(t, rows[3].Fields, 2)
	for _, r := range rows {
		assert.NoError(t, r.Err)
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, assert.AnError
}

func TestReadCSVRowsReaderError(t *testing.T) {
	called := false
	err := readCSVRows(failingReader{}, func(row csvRow) {
		called = true
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, called)
}

func TestReadCSVRowsByteOrderMark(t *testing.T) {
	rows := make([]csvRow, 0)
	err := readCSVRows(strings.NewReader("\uFEFFTitle A,TU001,,,,,,,\n"), func(row csvRow) {
		rows = append(rows, row)
	})
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Number)
	assert.Equal(t, "Title A", rows[0].Fields[0])
}

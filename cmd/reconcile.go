package main

import (
	"errors"
	"slices"
	"strings"
)

// column positions in the upload CSV
const (
	colTitle = iota
	colIdentifier
	colHandle
	colLocation
	colDOPublish
	colRestrictions
	colFVPublish
	colChecksum
	colChecksumMethod
	domColumnCount
)

const openForResearch = "Open for research."
const invalidChecksumMethod = "Invalid checksum method"

// checksum methods configured in the ArchivesSpace checksum_method enumeration
var checksumMethods = []string{
	"md5", "sha-1", "sha-256", "sha-384", "sha-512",
	"Advanced Checksum Verifier", "md5 UNIX", "Bagger 2.1.2", "NA", "python hashlib",
	"Advanced Checksum", "Bagger 2.6.2", "UNIX md5", "Bagger", "Bagger 2.1.3",
	"Bagger 2.1.3.", "Bagger2.1.3", "Bagger2.1.3.", "MD5 and SHA Checksum Utility",
	"Bagger-2.7.7", "Bagger 2.7.7",
}

var errHeaderRow = errors.New("header row")
var errWrongFieldCount = errors.New("wrong number of fields")
var errNoData = errors.New("no data")
var errNothingToUpdate = errors.New("no fields to update")

type rowIntent int

const (
	intentUpdate rowIntent = iota
	intentCreate
)

// domRow is a reconciled upload row. Blank string fields and nil flags mean no change.
type domRow struct {
	Title          string
	Identifier     string
	Handle         string
	Location       string
	DOPublish      *bool
	Restricted     *bool
	FVPublish      *bool
	Checksum       string
	ChecksumMethod string
	FillCount      int
}

func (r *domRow) intent() rowIntent {
	if r.FillCount == domColumnCount {
		return intentCreate
	}
	return intentUpdate
}

func (r *domRow) invalidChecksumMethod() bool {
	return r.ChecksumMethod == invalidChecksumMethod
}

// writableChecksumMethod returns the checksum method if it may be sent to ArchivesSpace
func (r *domRow) writableChecksumMethod() string {
	if r.invalidChecksumMethod() {
		return ""
	}
	return r.ChecksumMethod
}

// parseFlag is the boolean parser for the publish columns. Only "true", in any
// letter case, is true; every other value is false.
func parseFlag(val string) bool {
	return strings.EqualFold(strings.TrimSpace(val), "true")
}

func isHeaderRow(fields []string) bool {
	return len(fields) > 1 && strings.TrimSpace(fields[colTitle]) == "title" && strings.TrimSpace(fields[colIdentifier]) == "pid"
}

// reconcileRow validates the raw CSV fields of a row and converts them into a domRow.
// The fill count includes every populated column, an invalid checksum method included.
func reconcileRow(fields []string) (*domRow, error) {
	if len(fields) == 0 {
		return nil, errNoData
	}
	if isHeaderRow(fields) {
		return nil, errHeaderRow
	}
	if len(fields) != domColumnCount {
		return nil, errWrongFieldCount
	}

	vals := make([]string, domColumnCount)
	for i, f := range fields {
		vals[i] = strings.TrimSpace(f)
	}

	out := domRow{}
	for _, v := range vals {
		if v != "" {
			out.FillCount++
		}
	}
	if out.FillCount == 0 {
		return nil, errNoData
	}
	if vals[colIdentifier] == "" {
		return nil, errNoIdentifier
	}
	if out.FillCount == 1 {
		return nil, errNothingToUpdate
	}

	out.Title = vals[colTitle]
	out.Identifier = vals[colIdentifier]
	out.Handle = vals[colHandle]
	out.Location = vals[colLocation]
	out.Checksum = vals[colChecksum]
	if vals[colDOPublish] != "" {
		pub := parseFlag(vals[colDOPublish])
		out.DOPublish = &pub
	}
	if vals[colRestrictions] != "" {
		restricted := vals[colRestrictions] != openForResearch
		out.Restricted = &restricted
	}
	if vals[colFVPublish] != "" {
		pub := parseFlag(vals[colFVPublish])
		out.FVPublish = &pub
	}
	if vals[colChecksumMethod] != "" {
		out.ChecksumMethod = vals[colChecksumMethod]
		if !slices.Contains(checksumMethods, out.ChecksumMethod) {
			out.ChecksumMethod = invalidChecksumMethod
		}
	}
	return &out, nil
}

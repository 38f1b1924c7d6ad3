package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMODS = `<?xml version="1.0" encoding="UTF-8"?><mods xmlns="http://www.loc.gov/mods/v3"><titleInfo><title>AO TU001</title></titleInfo></mods>`

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = string(b)
	}
	return out
}

func TestMODSBundleNames(t *testing.T) {
	bundle := newMODSBundle()
	names := make([]string, 0)
	for i := 0; i < 3; i++ {
		name, err := bundle.add("MS001.002", "<mods/>")
		require.NoError(t, err)
		names = append(names, name)
	}
	assert.Equal(t, []string{"MS001_002.xml", "MS001_002_2.xml", "MS001_002_3.xml"}, names)

	actLog := newActivityLog()
	actLog.add(false, "done")
	data, err := bundle.finish(actLog)
	require.NoError(t, err)
	files := readZip(t, data)
	assert.Len(t, files, 4)
	assert.Equal(t, "done\n", files["action_log.txt"])
}

func TestFormatMODS(t *testing.T) {
	out := formatMODS([]byte(sampleMODS))
	assert.Contains(t, out, "\n")
	assert.Contains(t, out, "AO TU001")
	assert.Equal(t, strings.TrimSpace(out), out)
}

func TestDownloadRows(t *testing.T) {
	fake := newFakeArchivesSpace()
	fake.addArchivalObject(aoURI, "TU001")
	fake.mods[aoURI] = sampleMODS
	fake.addArchivalObject("/repositories/2/archival_objects/12", "TU002")
	proc, actLog := newTestProcessor(fake)
	proc.action = actionDownload
	bundle := newMODSBundle()
	ctx := context.Background()

	proc.downloadRow(ctx, csvLine(1, "title,pid,,,,,,,"), bundle)
	proc.downloadRow(ctx, csvLine(2, "whatever,tufts:TU001"), bundle)
	proc.downloadRow(ctx, csvLine(3, "whatever,TU002,,,,,,,"), bundle)
	proc.downloadRow(ctx, csvLine(4, "whatever,TU404,,,,,,,"), bundle)
	proc.downloadRow(ctx, csvLine(5, "only one field"), bundle)

	assert.Empty(t, fake.posts)
	assert.Equal(t, "Header row 1 skipped\n"+
		"TU001: TU001.xml downloaded\n"+
		"TU002: TU002 found but no MODS record downloaded (status error 404: not found)\n"+
		"TU404 not found in ArchivesSpace\n"+
		"No PID to retrieve archival object for input row 5\n", actLog.String())

	data, err := bundle.finish(actLog)
	require.NoError(t, err)
	files := readZip(t, data)
	assert.Len(t, files, 2)
	assert.Contains(t, files["TU001.xml"], "AO TU001")
	assert.Equal(t, actLog.String(), files["action_log.txt"])
}

func TestDownloadSearchFailure(t *testing.T) {
	fake := newFakeArchivesSpace()
	fake.searchErr = &RequestError{Kind: StatusError, StatusCode: http.StatusForbidden, Message: "denied"}
	proc, actLog := newTestProcessor(fake)
	bundle := newMODSBundle()

	proc.downloadRow(context.Background(), csvLine(1, ",TU001,,,,,,,"), bundle)

	assert.Equal(t, "TU001: Can't execute search for input row 1 (status error 403: denied)\n", actLog.String())
}

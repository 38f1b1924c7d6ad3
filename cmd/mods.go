package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-xmlfmt/xmlfmt"
	"github.com/klauspost/compress/zip"
)

// modsSource fetches the MODS export of an archival object
type modsSource interface {
	getMODS(ctx context.Context, sess *asSession, aoURI string) ([]byte, *RequestError)
}

// modsBundle is the zip archive returned by a MODS download run
type modsBundle struct {
	buf   bytes.Buffer
	zw    *zip.Writer
	names map[string]int
}

func newMODSBundle() *modsBundle {
	b := modsBundle{names: make(map[string]int)}
	b.zw = zip.NewWriter(&b.buf)
	return &b
}

// add writes one MODS document to the bundle and returns the entry name used.
// Repeated identifiers get a numeric suffix so no entry is overwritten.
func (b *modsBundle) add(key string, mods string) (string, error) {
	name := zipEntryName(key)
	b.names[name]++
	if cnt := b.names[name]; cnt > 1 {
		name = fmt.Sprintf("%s_%d.xml", strings.TrimSuffix(name, ".xml"), cnt)
	}
	w, err := b.zw.Create(name)
	if err != nil {
		return "", err
	}
	_, err = w.Write([]byte(mods))
	return name, err
}

// finish adds the action log and closes the archive
func (b *modsBundle) finish(actions *activityLog) ([]byte, error) {
	w, err := b.zw.Create("action_log.txt")
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(actions.String())); err != nil {
		return nil, err
	}
	if err := b.zw.Close(); err != nil {
		return nil, err
	}
	return b.buf.Bytes(), nil
}

func formatMODS(raw []byte) string {
	prettyXML := xmlfmt.FormatXML(string(raw), "", "   ")
	return strings.TrimSpace(prettyXML)
}

// downloadRow adds the MODS of every archival object matching the row identifier to the bundle
func (p *domProcessor) downloadRow(ctx context.Context, row csvRow, bundle *modsBundle) {
	if row.Err != nil {
		p.log.add(true, "Unable to parse input row %d: %s", row.Number, row.Err.Error())
		return
	}
	if isHeaderRow(row.Fields) {
		p.log.add(false, "Header row %d skipped", row.Number)
		return
	}
	if len(row.Fields) <= colIdentifier {
		p.log.add(true, "No PID to retrieve archival object for input row %d", row.Number)
		return
	}
	key, err := searchKey(row.Fields[colIdentifier])
	if err != nil {
		p.log.add(true, "No PID to retrieve archival object for input row %d", row.Number)
		return
	}

	for _, match := range p.resolve(ctx, key, row.Number) {
		e := match.Entry
		modsXML, reqErr := p.mods.getMODS(ctx, p.sess, match.URI)
		if reqErr != nil {
			e.requestFailed(fmt.Sprintf("%s found but no MODS record downloaded", key), reqErr)
			e.commit()
			continue
		}
		name, err := bundle.add(key, formatMODS(modsXML))
		if err != nil {
			e.fail("unable to add %s to download: %s", key, err.Error())
		} else {
			e.info("%s downloaded", name)
		}
		e.commit()
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
)

type processAction int

const (
	actionUpdate processAction = iota
	actionDownload
)

// domProcessor runs the rows of one upload against a single ArchivesSpace repository
type domProcessor struct {
	action    processAction
	search    recordSearcher
	store     recordStore
	mods      modsSource
	sess      *asSession
	idPrefix  string
	linkTitle string
	log       *activityLog
}

// matchedRecord is a search hit whose component id matched the row identifier
type matchedRecord struct {
	URI   string
	Entry *activityEntry
}

// resolve finds the archival objects matching key. Rows that cannot be resolved are logged
// and an empty list is returned. Each match carries its own log entry which the caller must commit.
func (p *domProcessor) resolve(ctx context.Context, key string, rowNum int) []matchedRecord {
	out := make([]matchedRecord, 0)
	hits, err := p.search.searchArchivalObjects(ctx, p.sess, key)
	if err != nil {
		e := p.log.entry("%s:", key)
		e.requestFailed(fmt.Sprintf("Can't execute search for input row %d", rowNum), err)
		e.commit()
		return out
	}
	if len(hits) == 0 {
		if p.action == actionDownload {
			p.log.add(true, "%s not found in ArchivesSpace", key)
		} else {
			p.log.add(true, "%s: No matching archival object for input row %d", key, rowNum)
		}
		return out
	}

	for _, hit := range hits {
		e := p.log.entry("%s:", key)
		var obj asObjectDetails
		if jsonErr := json.Unmarshal([]byte(hit.JSON), &obj); jsonErr != nil {
			e.requestFailed(fmt.Sprintf("Can't get the JSON representation of the archival object for row %d", rowNum), decodeError(jsonErr))
			e.commit()
			continue
		}
		componentID := obj.stringValue("component_id")
		if componentID != key {
			e.info("Skipped %s for row %d; component id [%s] does not match", hit.URI, rowNum, componentID)
			e.commit()
			continue
		}
		uri := hit.URI
		if uri == "" {
			uri = obj.stringValue("uri")
		}
		if uri == "" {
			e.fail("Search result for row %d has no archival object uri", rowNum)
			e.commit()
			continue
		}
		out = append(out, matchedRecord{URI: uri, Entry: e})
	}
	return out
}

// updateRow reconciles one upload row and creates or updates its digital objects
func (p *domProcessor) updateRow(ctx context.Context, row csvRow) {
	if row.Err != nil {
		p.log.add(true, "Unable to parse input row %d: %s", row.Number, row.Err.Error())
		return
	}

	dr, err := reconcileRow(row.Fields)
	if err != nil {
		switch err {
		case errHeaderRow:
			p.log.add(false, "Header row %d skipped", row.Number)
		case errWrongFieldCount:
			p.log.add(true, "Wrong number of fields in input row %d", row.Number)
		case errNoIdentifier:
			p.log.add(true, "No PID to retrieve archival object for input row %d", row.Number)
		case errNothingToUpdate:
			p.log.add(true, "%s: No fields to update for input row %d", row.Fields[colIdentifier], row.Number)
		default:
			p.log.add(true, "No data in input row %d", row.Number)
		}
		return
	}

	key, err := searchKey(dr.Identifier)
	if err != nil {
		p.log.add(true, "No PID to retrieve archival object for input row %d", row.Number)
		return
	}

	for _, match := range p.resolve(ctx, key, row.Number) {
		e := match.Entry
		ao, reqErr := p.store.getRecord(ctx, p.sess, match.URI)
		if reqErr != nil {
			e.requestFailed(fmt.Sprintf("Can't return json item from AO URI %s for row %d", match.URI, row.Number), reqErr)
			e.commit()
			continue
		}
		if ao.stringValue("uri") == "" {
			ao["uri"] = match.URI
		}

		if dr.intent() == intentCreate {
			p.createDigitalObject(ctx, e, ao, dr, key, row.Number)
		} else {
			p.updateDigitalObjects(ctx, e, ao, dr, key, row.Number)
		}
		e.commit()
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type postedRecord struct {
	URI    string
	Record asObjectDetails
}

// fakeArchivesSpace is an in memory stand in for the search and record interfaces
type fakeArchivesSpace struct {
	records   map[string]asObjectDetails
	hits      map[string][]asSearchHit
	mods      map[string]string
	searchErr *RequestError
	failPost  map[string]*RequestError
	failGet   map[string]*RequestError
	posts     []postedRecord
	searches  []string
	nextDOID  int
}

func newFakeArchivesSpace() *fakeArchivesSpace {
	return &fakeArchivesSpace{
		records:  make(map[string]asObjectDetails),
		hits:     make(map[string][]asSearchHit),
		mods:     make(map[string]string),
		failPost: make(map[string]*RequestError),
		failGet:  make(map[string]*RequestError),
		posts:    make([]postedRecord, 0),
		nextDOID: 100,
	}
}

func cloneRecord(rec asObjectDetails) asObjectDetails {
	b, _ := json.Marshal(rec)
	var out asObjectDetails
	json.Unmarshal(b, &out)
	return out
}

// addArchivalObject stores an archival object and makes it findable by its component id
func (f *fakeArchivesSpace) addArchivalObject(uri, componentID string, doRefs ...string) asObjectDetails {
	instances := make([]interface{}, 0)
	for _, ref := range doRefs {
		instances = append(instances, map[string]interface{}{
			"instance_type":  "digital_object",
			"digital_object": map[string]interface{}{"ref": ref},
		})
	}
	ao := asObjectDetails{"uri": uri, "component_id": componentID, "title": "AO " + componentID,
		"lock_version": float64(3), "instances": instances}
	f.records[uri] = ao
	aoJSON, _ := json.Marshal(ao)
	f.hits[componentID] = append(f.hits[componentID], asSearchHit{URI: uri, PrimaryType: "archival_object", JSON: string(aoJSON)})
	return ao
}

func (f *fakeArchivesSpace) addDigitalObject(uri string, rec asObjectDetails) {
	rec["uri"] = uri
	f.records[uri] = rec
}

func (f *fakeArchivesSpace) record(uri string) asObjectDetails {
	return f.records[uri]
}

func (f *fakeArchivesSpace) postsTo(uri string) []postedRecord {
	out := make([]postedRecord, 0)
	for _, p := range f.posts {
		if p.URI == uri {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeArchivesSpace) searchArchivalObjects(ctx context.Context, sess *asSession, key string) ([]asSearchHit, *RequestError) {
	f.searches = append(f.searches, key)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits[key], nil
}

func (f *fakeArchivesSpace) getRecord(ctx context.Context, sess *asSession, uri string) (asObjectDetails, *RequestError) {
	if err, ok := f.failGet[uri]; ok {
		return nil, err
	}
	rec, ok := f.records[uri]
	if !ok {
		return nil, &RequestError{Kind: StatusError, StatusCode: http.StatusNotFound, Message: "Record not found"}
	}
	return cloneRecord(rec), nil
}

func (f *fakeArchivesSpace) postRecord(ctx context.Context, sess *asSession, uri string, rec asObjectDetails) ([]byte, *RequestError) {
	if err, ok := f.failPost[uri]; ok {
		return nil, err
	}
	saved := cloneRecord(rec)
	f.posts = append(f.posts, postedRecord{URI: uri, Record: saved})
	if strings.HasSuffix(uri, "/digital_objects") {
		f.nextDOID++
		newURI := fmt.Sprintf("%s/%d", uri, f.nextDOID)
		saved["uri"] = newURI
		f.records[newURI] = saved
		return []byte(fmt.Sprintf(`{"status":"Created","id":%d,"lock_version":0,"uri":"%s"}`, f.nextDOID, newURI)), nil
	}
	f.records[uri] = saved
	return []byte(`{"status":"Updated"}`), nil
}

func (f *fakeArchivesSpace) getMODS(ctx context.Context, sess *asSession, aoURI string) ([]byte, *RequestError) {
	mods, ok := f.mods[aoURI]
	if !ok {
		return nil, &RequestError{Kind: StatusError, StatusCode: http.StatusNotFound, Message: "not found"}
	}
	return []byte(mods), nil
}

func newTestProcessor(f *fakeArchivesSpace) (*domProcessor, *activityLog) {
	actLog := newActivityLog()
	proc := &domProcessor{search: f, store: f, mods: f, sess: &asSession{RepoID: "2", Token: "tok"},
		idPrefix: "tufts", linkTitle: "Digital Object", log: actLog}
	return proc, actLog
}

func csvLine(num int, line string) csvRow {
	var row csvRow
	readCSVRows(strings.NewReader(line), func(r csvRow) {
		row = r
	})
	row.Number = num
	return row
}

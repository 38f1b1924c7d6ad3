package main

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var handleRegex = regexp.MustCompile(`https?://hdl\.handle\.net/\d+/\d+$`)

// newDigitalObject builds the create payload for a fully populated row
func newDigitalObject(dr *domRow, doID string) asObjectDetails {
	fileVersion := map[string]interface{}{
		"checksum": dr.Checksum,
		"file_uri": dr.Handle,
		"publish":  dr.FVPublish != nil && *dr.FVPublish,
	}
	if method := dr.writableChecksumMethod(); method != "" {
		fileVersion["checksum_method"] = method
	}
	return asObjectDetails{
		"jsonmodel_type":    "digital_object",
		"title":             dr.Title,
		"digital_object_id": doID,
		"user_defined":      map[string]interface{}{"text_1": dr.Location},
		"publish":           dr.DOPublish != nil && *dr.DOPublish,
		"restrictions":      dr.Restricted != nil && *dr.Restricted,
		"file_versions":     []interface{}{fileVersion},
	}
}

// createDigitalObject creates a digital object for the row and links it to the archival object.
// There is no rollback: if the link fails the new digital object is left orphaned and reported.
func (p *domProcessor) createDigitalObject(ctx context.Context, e *activityEntry, ao asObjectDetails, dr *domRow, key string, rowNum int) {
	aoURI := ao.stringValue("uri")
	if ao.hasDigitalObjectInstance() {
		e.fail("There is already a digital object for row %d", rowNum)
		return
	}

	payload := newDigitalObject(dr, digitalObjectID(p.idPrefix, key))
	resp, reqErr := p.store.postRecord(ctx, p.sess, fmt.Sprintf("/repositories/%s/digital_objects", p.sess.RepoID), payload)
	if reqErr != nil {
		e.requestFailed(fmt.Sprintf("Unable to post created digital object to repository for input row number %d", rowNum), reqErr)
		return
	}
	createResp := struct {
		ID  int64  `json:"id"`
		URI string `json:"uri"`
	}{}
	if err := json.Unmarshal(resp, &createResp); err != nil {
		e.requestFailed(fmt.Sprintf("Unable to parse created digital object response for input row %d", rowNum), decodeError(err))
		return
	}
	doURI := createResp.URI
	if doURI == "" && createResp.ID > 0 {
		doURI = fmt.Sprintf("/repositories/%s/digital_objects/%d", p.sess.RepoID, createResp.ID)
	}
	if doURI == "" {
		e.fail("Created digital object for input row %d has no uri and can't be linked to %s", rowNum, aoURI)
		return
	}

	doInst := map[string]interface{}{
		"jsonmodel_type": "instance",
		"instance_type":  "digital_object",
		"digital_object": map[string]interface{}{"ref": doURI},
	}
	ao["instances"] = append(ao.instances(), doInst)
	_, reqErr = p.store.postRecord(ctx, p.sess, aoURI, ao)
	if reqErr != nil {
		e.requestFailed(fmt.Sprintf("Created %s but can't post archival object %s for input row %d; the digital object is not linked", doURI, aoURI, rowNum), reqErr)
		return
	}

	e.info("Created %s with Fedora handle %s. Linked %s to %s.", doURI, dr.Handle, doURI, aoURI)
	if dr.invalidChecksumMethod() {
		e.fail("Invalid checksum method")
	}
}

// updateDigitalObjects patches every digital object linked to the archival object with the populated row fields
func (p *domProcessor) updateDigitalObjects(ctx context.Context, e *activityEntry, ao asObjectDetails, dr *domRow, key string, rowNum int) {
	refs := ao.digitalObjectRefs()
	if len(refs) == 0 {
		e.fail("No digital object to update for input row %d", rowNum)
		return
	}

	for _, ref := range refs {
		dObj, reqErr := p.store.getRecord(ctx, p.sess, ref)
		if reqErr != nil {
			e.requestFailed(fmt.Sprintf("Problems receiving digital object %s for %s", ref, key), reqErr)
			continue
		}
		identifier := dObj.stringValue("digital_object_id")

		notes, err := patchDigitalObject(dObj, dr, p.linkTitle)
		if err != nil {
			e.fail("Unable to update %s: %s", identifier, err.Error())
			continue
		}

		_, reqErr = p.store.postRecord(ctx, p.sess, ref, dObj)
		if reqErr != nil {
			e.requestFailed(fmt.Sprintf("Problem with posting %s for input row number %d", identifier, rowNum), reqErr)
			continue
		}

		// NOTE: the reported count excludes one populated column, historically the identifier
		e.info("Updated %d fields in %s to %s.", dr.FillCount-1, identifier, ref)
		for _, n := range notes {
			e.info("%s.", n)
		}
		if dr.invalidChecksumMethod() {
			e.fail("Invalid checksum method")
		}
	}
}

// patchDigitalObject applies the populated row fields to an existing digital object in place.
// The file version list is never shrunk; an empty one is seeded with a blank entry.
func patchDigitalObject(dObj asObjectDetails, dr *domRow, linkTitle string) ([]string, error) {
	notes := make([]string, 0)
	if dr.Title != "" {
		dObj["title"] = dr.Title
	}
	if dr.DOPublish != nil {
		dObj["publish"] = *dr.DOPublish
	}
	if dr.Restricted != nil {
		dObj["restrictions"] = *dr.Restricted
	}
	if dr.Location != "" {
		userDefined, ok := dObj["user_defined"].(map[string]interface{})
		if !ok {
			userDefined = map[string]interface{}{"jsonmodel_type": "user_defined"}
		}
		userDefined["text_1"] = dr.Location
		dObj["user_defined"] = userDefined
	}

	fileVersions, _ := dObj["file_versions"].([]interface{})
	if len(fileVersions) == 0 {
		fileVersions = append(fileVersions, map[string]interface{}{"jsonmodel_type": "file_version"})
	}
	firstVersion, ok := fileVersions[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unable to parse file version data %+v", fileVersions[0])
	}
	if dr.FVPublish != nil {
		firstVersion["publish"] = *dr.FVPublish
	}
	if dr.Handle != "" {
		firstVersion["file_uri"] = dr.Handle
	}
	if dr.Checksum != "" {
		firstVersion["checksum"] = dr.Checksum
	}
	if method := dr.writableChecksumMethod(); method != "" {
		firstVersion["checksum_method"] = method
	}
	dObj["file_versions"] = fileVersions

	if dr.Handle != "" && updateHandleLinks(dObj, dr.Handle, linkTitle) {
		notes = append(notes, fmt.Sprintf("Updated handle link to %s", dr.Handle))
	}
	return notes, nil
}

// updateHandleLinks points external documents titled linkTitle at a new handle. Only
// locations that already end with a handle URL are rewritten.
func updateHandleLinks(dObj asObjectDetails, handle, linkTitle string) bool {
	docs, ok := dObj["external_documents"].([]interface{})
	if !ok || linkTitle == "" {
		return false
	}
	changed := false
	for _, docIface := range docs {
		doc, ok := docIface.(map[string]interface{})
		if !ok || doc["title"] != linkTitle {
			continue
		}
		location, _ := doc["location"].(string)
		if strings.HasSuffix(location, handle) || !handleRegex.MatchString(location) {
			continue
		}
		doc["location"] = handleRegex.ReplaceAllString(location, handle)
		changed = true
	}
	return changed
}

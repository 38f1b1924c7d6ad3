package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type externalSystem struct {
	ID        int64
	Name      string
	APIURL    string `gorm:"column:api_url"`
	PublicURL string `gorm:"column:public_url"`
}

type asObjectDetails map[string]interface{}

// asSession is the per-request ArchivesSpace context threaded through every backend call
type asSession struct {
	RepoID string
	Token  string
}

type asSearchHit struct {
	URI         string `json:"uri"`
	PrimaryType string `json:"primary_type"`
	JSON        string `json:"json"`
}

type asSearchResp struct {
	TotalHits int64         `json:"total_hits"`
	ThisPage  int           `json:"this_page"`
	LastPage  int           `json:"last_page"`
	Results   []asSearchHit `json:"results"`
}

// recordSearcher finds archival objects by identifier
type recordSearcher interface {
	searchArchivalObjects(ctx context.Context, sess *asSession, key string) ([]asSearchHit, *RequestError)
}

// recordStore reads and writes ArchivesSpace JSON records by URI
type recordStore interface {
	getRecord(ctx context.Context, sess *asSession, uri string) (asObjectDetails, *RequestError)
	postRecord(ctx context.Context, sess *asSession, uri string, rec asObjectDetails) ([]byte, *RequestError)
}

func (svc *ServiceContext) archivesSpaceMiddleware(c *gin.Context) {
	repoID := c.Param("repo")
	if id, _ := strconv.Atoi(repoID); id <= 0 {
		log.Printf("INFO: invalid repository id [%s]", repoID)
		c.String(http.StatusBadRequest, fmt.Sprintf("%s is not a valid repository", repoID))
		c.Abort()
		return
	}

	log.Printf("INFO: ensure archivesspace auth token exists for %s", c.Request.URL)
	token, err := svc.archivesSpaceToken(c.Request.Context())
	if err != nil {
		log.Printf("ERROR: %s", err.Error())
		c.String(http.StatusInternalServerError, err.Error())
		c.Abort()
		return
	}

	c.Set("asSession", &asSession{RepoID: repoID, Token: token})
	c.Next()
}

func getASSession(c *gin.Context) *asSession {
	if val, ok := c.Get("asSession"); ok {
		if sess, ok := val.(*asSession); ok {
			return sess
		}
	}
	return nil
}

func (svc *ServiceContext) archivesSpaceToken(ctx context.Context) (string, error) {
	svc.ArchivesSpace.lock.Lock()
	defer svc.ArchivesSpace.lock.Unlock()

	now := time.Now()
	if svc.ArchivesSpace.AuthToken == "" || now.After(svc.ArchivesSpace.ExpiresAt) {
		authURL := fmt.Sprintf("%s/users/%s/login", svc.ArchivesSpace.APIURL, url.PathEscape(svc.ArchivesSpace.User))
		log.Printf("INFO: archivesspace token missing or expired, requesting a new one with: %s", authURL)
		payload := url.Values{}
		payload.Add("password", svc.ArchivesSpace.Pass)
		resp, authErr := svc.postFormRequest(ctx, authURL, &payload)
		if authErr != nil {
			return "", fmt.Errorf("archivesspace auth post failed: %d:%s", authErr.StatusCode, authErr.Message)
		}
		jsonResp := struct {
			Session string `json:"session"`
		}{}
		err := json.Unmarshal(resp, &jsonResp)
		if err != nil {
			return "", fmt.Errorf("invalid auth response: %s", err.Error())
		}
		if jsonResp.Session == "" {
			return "", fmt.Errorf("archivesspace auth response has no session")
		}
		svc.ArchivesSpace.AuthToken = jsonResp.Session
		svc.ArchivesSpace.ExpiresAt = now.Add(30 * time.Minute)
	}
	return svc.ArchivesSpace.AuthToken, nil
}

// searchArchivalObjects runs an exact phrase search for key restricted to archival objects and
// returns the hits from every result page
func (svc *ServiceContext) searchArchivalObjects(ctx context.Context, sess *asSession, key string) ([]asSearchHit, *RequestError) {
	out := make([]asSearchHit, 0)
	page := 1
	for {
		params := url.Values{}
		params.Set("q", fmt.Sprintf("\"%s\"", key))
		params.Set("page", strconv.Itoa(page))
		params.Add("filter_term[]", `{"primary_type":"archival_object"}`)
		resp, err := svc.sendASGetRequest(ctx, sess, fmt.Sprintf("/repositories/%s/search?%s", sess.RepoID, params.Encode()))
		if err != nil {
			return nil, err
		}

		var parsed asSearchResp
		if jsonErr := json.Unmarshal(resp, &parsed); jsonErr != nil {
			return nil, decodeError(jsonErr)
		}
		out = append(out, parsed.Results...)
		if parsed.LastPage <= page || len(parsed.Results) == 0 {
			break
		}
		page++
	}
	return out, nil
}

func (svc *ServiceContext) getRecord(ctx context.Context, sess *asSession, uri string) (asObjectDetails, *RequestError) {
	resp, err := svc.sendASGetRequest(ctx, sess, uri)
	if err != nil {
		return nil, err
	}
	var out asObjectDetails
	if jsonErr := json.Unmarshal(resp, &out); jsonErr != nil {
		return nil, decodeError(jsonErr)
	}
	return out, nil
}

func (svc *ServiceContext) postRecord(ctx context.Context, sess *asSession, uri string, rec asObjectDetails) ([]byte, *RequestError) {
	return svc.sendASPostRequest(ctx, sess, uri, rec)
}

// getMODS pulls the MODS XML export for an archival object. The AS uri looks like
// /repositories/3/archival_objects/62839 and the export lives at
// /repositories/3/archival_objects/mods/62839.xml
func (svc *ServiceContext) getMODS(ctx context.Context, sess *asSession, aoURI string) ([]byte, *RequestError) {
	bits := strings.Split(strings.TrimSuffix(aoURI, "/"), "/")
	aoID := bits[len(bits)-1]
	modsURL := fmt.Sprintf("/repositories/%s/archival_objects/mods/%s.xml", sess.RepoID, aoID)
	return svc.sendASGetRequest(ctx, sess, modsURL)
}

func (rec asObjectDetails) stringValue(key string) string {
	if val, ok := rec[key]; ok && val != nil {
		return fmt.Sprintf("%v", val)
	}
	return ""
}

// instances returns the instance list of an archival object. A missing list is treated as empty.
func (rec asObjectDetails) instances() []interface{} {
	if list, ok := rec["instances"].([]interface{}); ok {
		return list
	}
	return make([]interface{}, 0)
}

func (rec asObjectDetails) hasDigitalObjectInstance() bool {
	for _, instIface := range rec.instances() {
		if inst, ok := instIface.(map[string]interface{}); ok && inst["instance_type"] == "digital_object" {
			return true
		}
	}
	return false
}

// digitalObjectRefs returns the digital object URIs of every digital_object instance
func (rec asObjectDetails) digitalObjectRefs() []string {
	out := make([]string, 0)
	for _, instIface := range rec.instances() {
		inst, ok := instIface.(map[string]interface{})
		if !ok || inst["instance_type"] != "digital_object" {
			continue
		}
		dobj, ok := inst["digital_object"].(map[string]interface{})
		if !ok {
			continue
		}
		if ref, ok := dobj["ref"].(string); ok && ref != "" {
			out = append(out, ref)
		}
	}
	return out
}

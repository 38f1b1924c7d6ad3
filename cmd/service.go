package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type htmlTemplates struct {
	Index *template.Template
}

type archivesSpaceContext struct {
	User      string
	Pass      string
	AuthToken string
	ExpiresAt time.Time
	APIURL    string
	lock      sync.Mutex
}

// ServiceContext contains common data used by all handlers
type ServiceContext struct {
	Version       string
	SMTP          SMTPConfig
	DOM           DOMConfig
	JWTKey        string
	GDB           *gorm.DB
	ArchivesSpace archivesSpaceContext
	HTTPClient    *http.Client
	Templates     htmlTemplates
	Archiver      runArchiver
}

type requestErrorKind int

// Backend failures are tagged so the activity log can report them uniformly
const (
	NetworkError requestErrorKind = iota
	DecodeError
	StatusError
)

func (k requestErrorKind) String() string {
	switch k {
	case NetworkError:
		return "network error"
	case DecodeError:
		return "decode error"
	default:
		return "status error"
	}
}

// RequestError contains http status code and message for a failed HTTP request
type RequestError struct {
	Kind       requestErrorKind
	StatusCode int
	Message    string
}

func (re *RequestError) Error() string {
	if re.Kind == StatusError {
		return fmt.Sprintf("%s %d: %s", re.Kind, re.StatusCode, re.Message)
	}
	return fmt.Sprintf("%s: %s", re.Kind, re.Message)
}

func decodeError(err error) *RequestError {
	return &RequestError{Kind: DecodeError, StatusCode: http.StatusInternalServerError, Message: err.Error()}
}

// InitializeService sets up the service context for all API handlers
func InitializeService(version string, cfg *ServiceConfig) *ServiceContext {
	ctx := ServiceContext{Version: version,
		SMTP:   cfg.SMTP,
		DOM:    cfg.DOM,
		JWTKey: cfg.JWTKey,
	}
	ctx.ArchivesSpace.User = cfg.ArchivesSpace.User
	ctx.ArchivesSpace.Pass = cfg.ArchivesSpace.Pass
	ctx.ArchivesSpace.APIURL = cfg.ArchivesSpace.API

	if cfg.DB.Host != "" {
		log.Printf("INFO: connecting to DB...")
		connectStr := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			cfg.DB.User, cfg.DB.Pass, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
		gdb, err := gorm.Open(mysql.Open(connectStr), &gorm.Config{})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("INFO: configure db pool settings...")
		sqlDB, _ := gdb.DB()
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(10)
		ctx.GDB = gdb
		log.Printf("INFO: DB Connection established")

		if ctx.ArchivesSpace.APIURL == "" {
			log.Printf("INFO: lookup archivesSpace API URL")
			var es externalSystem
			err = ctx.GDB.Where("name=?", "ArchivesSpace").Find(&es).Error
			if err != nil {
				log.Fatal(err)
			}
			if es.APIURL == "" {
				log.Fatal("ArchivesSpace external system has no API URL")
			}
			ctx.ArchivesSpace.APIURL = es.APIURL
		}
	}
	ctx.ArchivesSpace.APIURL = strings.TrimSuffix(ctx.ArchivesSpace.APIURL, "/")
	log.Printf("INFO: archivesSpace API is %s", ctx.ArchivesSpace.APIURL)

	log.Printf("INFO: load html templates")
	var err error
	ctx.Templates.Index, err = template.New("index.html").ParseFiles("./templates/index.html")
	if err != nil {
		log.Fatal(err)
	}

	if cfg.S3.Bucket != "" {
		log.Printf("INFO: init s3 run archive in bucket %s", cfg.S3.Bucket)
		ctx.Archiver, err = newS3Archiver(cfg.S3)
		if err != nil {
			log.Fatal(err)
		}
	}

	log.Printf("INFO: create HTTP client...")
	defaultTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 600 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	ctx.HTTPClient = &http.Client{
		Transport: defaultTransport,
		Timeout:   30 * time.Second,
	}
	log.Printf("INFO: HTTP Client created")

	return &ctx
}

// IgnoreFavicon is a dummy to handle browser favicon requests without warnings
func (svc *ServiceContext) ignoreFavicon(c *gin.Context) {
}

// GetVersion reports the version of the serivce
func (svc *ServiceContext) getVersion(c *gin.Context) {
	build := "unknown"
	// working directory is the bin directory, and build tag is in the root
	files, _ := filepath.Glob("../buildtag.*")
	if len(files) == 1 {
		build = strings.Replace(files[0], "../buildtag.", "", 1)
	}

	vMap := make(map[string]string)
	vMap["version"] = svc.Version
	vMap["build"] = build
	c.JSON(http.StatusOK, vMap)
}

// HealthCheck reports the health of the serivce
func (svc *ServiceContext) healthCheck(c *gin.Context) {
	type hcResp struct {
		Healthy bool   `json:"healthy"`
		Message string `json:"message,omitempty"`
	}
	hcMap := make(map[string]hcResp)
	hcMap["domservice"] = hcResp{Healthy: true}

	if svc.GDB != nil {
		hcMap["database"] = hcResp{Healthy: true}
		sqlDB, err := svc.GDB.DB()
		if err != nil {
			hcMap["database"] = hcResp{Healthy: false, Message: err.Error()}
		} else {
			err := sqlDB.Ping()
			if err != nil {
				hcMap["database"] = hcResp{Healthy: false, Message: err.Error()}
			}
		}
	}

	hcMap["archivesspace"] = hcResp{Healthy: true}
	if _, err := svc.archivesSpaceToken(c.Request.Context()); err != nil {
		hcMap["archivesspace"] = hcResp{Healthy: false, Message: err.Error()}
	}

	c.JSON(http.StatusOK, hcMap)
}

func (svc *ServiceContext) postFormRequest(ctx context.Context, url string, payload *url.Values) ([]byte, *RequestError) {
	return svc.sendRequest(ctx, "POST", url, payload)
}

func (svc *ServiceContext) sendRequest(ctx context.Context, verb string, url string, payload *url.Values) ([]byte, *RequestError) {
	log.Printf("INFO: %s request: %s", verb, url)
	startTime := time.Now()

	var req *http.Request
	var reqErr error
	if verb == "POST" && payload != nil {
		req, reqErr = http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(payload.Encode()))
		if reqErr == nil {
			req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, reqErr = http.NewRequestWithContext(ctx, verb, url, nil)
	}
	if reqErr != nil {
		return nil, &RequestError{Kind: NetworkError, StatusCode: http.StatusBadRequest, Message: reqErr.Error()}
	}
	req.Header.Add("User-Agent", "Golang_DOM")

	rawResp, rawErr := svc.HTTPClient.Do(req)
	resp, err := handleAPIResponse(url, rawResp, rawErr)
	elapsedMS := time.Since(startTime).Milliseconds()

	if err != nil {
		log.Printf("ERROR: Failed response from %s %s - %d:%s. Elapsed Time: %d (ms)",
			verb, url, err.StatusCode, err.Message, elapsedMS)
	} else {
		log.Printf("INFO: Successful response from %s %s. Elapsed Time: %d (ms)", verb, url, elapsedMS)
	}
	return resp, err
}

func (svc *ServiceContext) sendASGetRequest(ctx context.Context, sess *asSession, url string) ([]byte, *RequestError) {
	return svc.sendASRequest(ctx, sess, "GET", url, nil)
}
func (svc *ServiceContext) sendASPostRequest(ctx context.Context, sess *asSession, url string, payload interface{}) ([]byte, *RequestError) {
	return svc.sendASRequest(ctx, sess, "POST", url, payload)
}
func (svc *ServiceContext) sendASRequest(ctx context.Context, sess *asSession, verb string, url string, payload interface{}) ([]byte, *RequestError) {
	fullURL := fmt.Sprintf("%s%s", svc.ArchivesSpace.APIURL, url)
	log.Printf("INFO: archivesspace %s request: %s", verb, fullURL)
	startTime := time.Now()

	var req *http.Request
	var reqErr error
	if verb == "POST" {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, decodeError(err)
		}
		req, reqErr = http.NewRequestWithContext(ctx, "POST", fullURL, bytes.NewBuffer(b))
	} else {
		req, reqErr = http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	}
	if reqErr != nil {
		return nil, &RequestError{Kind: NetworkError, StatusCode: http.StatusBadRequest, Message: reqErr.Error()}
	}

	req.Header.Add("Content-type", "application/json")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("X-ArchivesSpace-Session", sess.Token)
	rawResp, rawErr := svc.HTTPClient.Do(req)
	resp, err := handleAPIResponse(url, rawResp, rawErr)
	elapsedMS := time.Since(startTime).Milliseconds()

	if err != nil {
		log.Printf("ERROR: Failed response from %s %s - %d:%s. Elapsed Time: %d (ms)",
			verb, url, err.StatusCode, err.Message, elapsedMS)
	} else {
		log.Printf("INFO: Successful response from %s %s. Elapsed Time: %d (ms)", verb, url, elapsedMS)
	}
	return resp, err
}

// ArchivesSpace signals success with 200 only; anything else is a StatusError
func handleAPIResponse(logURL string, resp *http.Response, err error) ([]byte, *RequestError) {
	if err != nil {
		status := http.StatusBadRequest
		errMsg := err.Error()
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() || strings.Contains(err.Error(), "Timeout") {
			status = http.StatusRequestTimeout
			errMsg = fmt.Sprintf("%s timed out", logURL)
		} else if strings.Contains(err.Error(), "connection refused") {
			status = http.StatusServiceUnavailable
			errMsg = fmt.Sprintf("%s refused connection", logURL)
		}
		return nil, &RequestError{Kind: NetworkError, StatusCode: status, Message: errMsg}
	}

	defer resp.Body.Close()
	bodyBytes, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Kind: StatusError, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(bodyBytes))}
	}
	if readErr != nil {
		return nil, &RequestError{Kind: NetworkError, StatusCode: resp.StatusCode, Message: readErr.Error()}
	}
	return bodyBytes, nil
}

package main

import (
	"fmt"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// content types accepted for the CSV upload
var uploadTypes = []string{"text/plain", "text/csv", "application/vnd.ms-excel"}

func validUploadType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, t := range uploadTypes {
		if mediaType == t {
			return true
		}
	}
	return false
}

func (svc *ServiceContext) domIndex(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	err := svc.Templates.Index.Execute(c.Writer, gin.H{"Version": svc.Version})
	if err != nil {
		log.Printf("ERROR: unable to render index: %s", err.Error())
		c.String(http.StatusInternalServerError, err.Error())
	}
}

func (svc *ServiceContext) newProcessor(sess *asSession, actLog *activityLog) *domProcessor {
	return &domProcessor{search: svc, store: svc, mods: svc, sess: sess,
		idPrefix: svc.DOM.IDPrefix, linkTitle: svc.DOM.LinkTitle, log: actLog}
}

// getUploadFile returns the uploaded CSV. Errors have already been sent to the client when nil is returned.
func getUploadFile(c *gin.Context) (multipart.File, *multipart.FileHeader) {
	fh, err := c.FormFile("datafile")
	if err != nil {
		log.Printf("INFO: upload request without datafile: %s", err.Error())
		c.String(http.StatusBadRequest, "datafile is required")
		return nil, nil
	}
	if !validUploadType(fh.Header.Get("Content-Type")) {
		log.Printf("INFO: %s has invalid content type [%s]", fh.Filename, fh.Header.Get("Content-Type"))
		c.String(http.StatusBadRequest, fmt.Sprintf("%s is not a valid CSV file", fh.Filename))
		return nil, nil
	}
	file, err := fh.Open()
	if err != nil {
		log.Printf("ERROR: unable to open upload %s: %s", fh.Filename, err.Error())
		c.String(http.StatusInternalServerError, err.Error())
		return nil, nil
	}
	return file, fh
}

func sendAttachment(c *gin.Context, filename string, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Data(http.StatusOK, contentType, data)
}

func (svc *ServiceContext) domDownload(c *gin.Context) {
	sess := getASSession(c)
	file, fh := getUploadFile(c)
	if file == nil {
		return
	}
	defer file.Close()

	run, err := svc.startRun("DigitalObjectManagerDownload", sess.RepoID, fh.Filename)
	if err != nil {
		log.Printf("ERROR: %s", err.Error())
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	actLog := newActivityLog()
	actLog.onEntry = run.activityHook()
	proc := svc.newProcessor(sess, actLog)
	proc.action = actionDownload
	bundle := newMODSBundle()
	ctx := c.Request.Context()
	err = readCSVRows(file, func(row csvRow) {
		run.Rows++
		proc.downloadRow(ctx, row, bundle)
	})
	if err != nil {
		run.fatal(fmt.Sprintf("Unable to read %s: %s", fh.Filename, err.Error()))
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	zipBytes, err := bundle.finish(actLog)
	if err != nil {
		run.fatal(fmt.Sprintf("Unable to create MODS download: %s", err.Error()))
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	zipName := fmt.Sprintf("mods_download_%s.zip", time.Now().Format("20060102_150405"))
	run.archiveOutput(ctx, zipName, zipBytes, "application/zip")
	run.finish()
	sendAttachment(c, zipName, "application/zip", zipBytes)
}

func (svc *ServiceContext) domUpdate(c *gin.Context) {
	sess := getASSession(c)
	file, fh := getUploadFile(c)
	if file == nil {
		return
	}
	defer file.Close()

	run, err := svc.startRun("DigitalObjectManagerUpdate", sess.RepoID, fh.Filename)
	if err != nil {
		log.Printf("ERROR: %s", err.Error())
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	actLog := newActivityLog()
	actLog.onEntry = run.activityHook()
	proc := svc.newProcessor(sess, actLog)
	ctx := c.Request.Context()
	err = readCSVRows(file, func(row csvRow) {
		run.Rows++
		proc.updateRow(ctx, row)
	})
	if err != nil {
		// rows already processed stay processed; report what was done along with the failure
		actLog.add(true, "Unable to read the rest of %s: %s", fh.Filename, err.Error())
	}

	activity := []byte(actLog.String())
	run.archiveOutput(ctx, "activity_log.txt", activity, "text/plain")

	if email := c.PostForm("email"); email != "" {
		req := svc.activityLogEmail(email, sess.RepoID, fh.Filename, actLog.String())
		if err := svc.sendEmail(req); err != nil {
			run.failure(fmt.Sprintf("Unable to email activity log to %s: %s", email, err.Error()))
		}
	}

	run.finish()
	sendAttachment(c, "activity_log.txt", "text/plain; charset=utf-8", activity)
}

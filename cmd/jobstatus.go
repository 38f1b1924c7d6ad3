package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type eventLevel uint

// Event levels for job status reporting from rails enum:[:info, :warning, :error, :fatal] - warning is never used
const (
	Info  eventLevel = 0
	Warn  eventLevel = 1
	Error eventLevel = 2
	Fatal eventLevel = 3
)

type event struct {
	ID          int64      `json:"-"`
	JobStatusID int64      `json:"-"`
	Level       eventLevel `json:"level"`
	Text        string     `json:"text"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type jobStatus struct {
	ID             int64      `json:"id"`
	OriginatorID   int64      `json:"repositoryID"`
	OriginatorType string     `json:"-"`
	Name           string     `json:"name"`
	Status         string     `json:"status"`
	Failures       uint       `json:"failures"`
	Error          string     `json:"error"`
	Events         []event    `gorm:"foreignKey:JobStatusID" json:"events"`
	StartedAt      *time.Time `json:"startedAt"`
	EndedAt        *time.Time `json:"endedAt"`
	CreatedAt      time.Time  `json:"-"`
	UpdatedAt      time.Time  `json:"-"`
}

// domRun tracks a single download or update run of one uploaded file. Progress always
// goes to the process log; a job status row with events is kept only when a database is configured.
type domRun struct {
	svc      *ServiceContext
	js       *jobStatus
	Job      string
	RepoID   string
	Upload   string
	Rows     int
	Entries  int
	Failures int
}

func (svc *ServiceContext) startRun(job, repoID, upload string) (*domRun, error) {
	run := &domRun{svc: svc, Job: job, RepoID: repoID, Upload: upload}
	log.Printf("INFO: start %s of %s in repository %s", job, upload, repoID)
	if svc.GDB == nil {
		return run, nil
	}
	origID, _ := strconv.ParseInt(repoID, 10, 64)
	now := time.Now()
	js := jobStatus{OriginatorID: origID, OriginatorType: "Repository", Name: job, Status: "running", StartedAt: &now}
	if err := svc.GDB.Create(&js).Error; err != nil {
		return nil, fmt.Errorf("unable to create %s job status: %s", job, err.Error())
	}
	run.js = &js
	run.addEvent(Info, fmt.Sprintf("Process %s for repository %s", upload, repoID))
	return run, nil
}

func (r *domRun) addEvent(level eventLevel, text string) {
	if r.js == nil {
		return
	}
	e := event{JobStatusID: r.js.ID, Level: level, Text: text}
	if err := r.svc.GDB.Create(&e).Error; err != nil {
		log.Printf("ERROR: unable to log job %d event [%s]: %s", r.js.ID, text, err.Error())
	}
}

func (r *domRun) info(text string) {
	log.Printf("INFO: [%s %s] %s", r.Job, r.Upload, text)
	r.addEvent(Info, text)
}

// failure records a problem that does not stop the run
func (r *domRun) failure(text string) {
	log.Printf("WARNING: [%s %s] %s", r.Job, r.Upload, text)
	r.Failures++
	r.addEvent(Error, text)
	if r.js != nil {
		r.js.Failures = uint(r.Failures)
		r.svc.GDB.Model(r.js).Select("failures").Updates(jobStatus{Failures: r.js.Failures})
	}
}

func (r *domRun) fatal(text string) {
	log.Printf("ERROR: [%s %s] %s", r.Job, r.Upload, text)
	if r.js == nil || r.js.EndedAt != nil {
		return
	}
	r.addEvent(Fatal, text)
	now := time.Now()
	r.js.EndedAt = &now
	r.svc.GDB.Model(r.js).Select("ended_at", "status", "error").Updates(jobStatus{EndedAt: &now, Status: "failure", Error: text})
}

// activityHook mirrors each activity log line into the run, counting failed lines
func (r *domRun) activityHook() func(line string, failed bool) {
	return func(line string, failed bool) {
		r.Entries++
		if failed {
			r.failure(line)
		} else {
			r.addEvent(Info, line)
		}
	}
}

func (r *domRun) summary() string {
	return fmt.Sprintf("%d rows of %s processed in repository %s: %d activity entries, %d failures",
		r.Rows, r.Upload, r.RepoID, r.Entries, r.Failures)
}

func (r *domRun) finish() {
	r.info(r.summary())
	if r.js == nil || r.js.EndedAt != nil {
		return
	}
	now := time.Now()
	r.js.EndedAt = &now
	r.svc.GDB.Model(r.js).Select("ended_at", "status").Updates(jobStatus{EndedAt: &now, Status: "finished"})
}

func (svc *ServiceContext) getJobStatus(c *gin.Context) {
	if svc.GDB == nil {
		c.String(http.StatusNotFound, "job tracking is not enabled")
		return
	}
	jID := c.Param("id")
	var js jobStatus
	err := svc.GDB.Preload("Events").First(&js, jID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.String(http.StatusNotFound, "not found")
		} else {
			c.String(http.StatusInternalServerError, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, js)
}

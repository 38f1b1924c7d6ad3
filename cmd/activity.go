package main

import (
	"fmt"
	"strings"
)

// activityLog accumulates the human readable outcome of a run, one line per
// row or per matched record. It is passed by reference through a run.
type activityLog struct {
	lines   []string
	onEntry func(line string, failed bool)
}

// activityEntry is a single line under construction. Messages are joined with a space.
type activityEntry struct {
	log    *activityLog
	prefix string
	msgs   []string
	failed bool
}

func newActivityLog() *activityLog {
	return &activityLog{lines: make([]string, 0)}
}

func (al *activityLog) entry(format string, args ...interface{}) *activityEntry {
	return &activityEntry{log: al, prefix: fmt.Sprintf(format, args...), msgs: make([]string, 0)}
}

// add commits a one message line
func (al *activityLog) add(failed bool, format string, args ...interface{}) {
	e := al.entry("")
	if failed {
		e.fail(format, args...)
	} else {
		e.info(format, args...)
	}
	e.commit()
}

func (al *activityLog) String() string {
	if len(al.lines) == 0 {
		return ""
	}
	return strings.Join(al.lines, "\n") + "\n"
}

func (al *activityLog) Len() int {
	return len(al.lines)
}

func (e *activityEntry) info(format string, args ...interface{}) {
	e.msgs = append(e.msgs, fmt.Sprintf(format, args...))
}

func (e *activityEntry) fail(format string, args ...interface{}) {
	e.failed = true
	e.msgs = append(e.msgs, fmt.Sprintf(format, args...))
}

func (e *activityEntry) requestFailed(what string, err *RequestError) {
	e.fail("%s (%s)", what, err.Error())
}

func (e *activityEntry) commit() {
	if len(e.msgs) == 0 {
		return
	}
	line := strings.Join(e.msgs, " ")
	if e.prefix != "" {
		line = e.prefix + " " + line
	}
	e.log.lines = append(e.log.lines, line)
	if e.log.onEntry != nil {
		e.log.onEntry(line, e.failed)
	}
	e.msgs = make([]string, 0)
	e.failed = false
}

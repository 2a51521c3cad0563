package service

import (
	"strconv"
	"strings"
	"time"
)

// Server-Timing stage names.
const (
	StageDownload  = "img-download"
	StageTransform = "img-transform"
	StageUpload    = "img-upload"
)

type timingEntry struct {
	stage string
	dur   time.Duration
}

// TimingLog collects stage durations in the order they happened.
type TimingLog struct {
	entries []timingEntry
}

// Add appends a stage.
func (l *TimingLog) Add(stage string, d time.Duration) {
	l.entries = append(l.entries, timingEntry{stage: stage, dur: d})
}

// Len returns the number of recorded stages.
func (l *TimingLog) Len() int {
	return len(l.entries)
}

// String renders the log as a Server-Timing value with whole milliseconds,
// e.g. "img-download;dur=12,img-transform;dur=40".
func (l *TimingLog) String() string {
	parts := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		parts = append(parts, e.stage+";dur="+strconv.FormatInt(e.dur.Milliseconds(), 10))
	}
	return strings.Join(parts, ",")
}

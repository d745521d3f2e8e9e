package models

import (
	"fmt"
	"strings"
)

// Goal bounds and default, in percent
const (
	MinGoal     = 0
	MaxGoal     = 100
	DefaultGoal = 75
)

// ClassRecord represents a class the user attends repeatedly
type ClassRecord struct {
	ID   string `json:"id"`   // Unique class ID, assigned on creation
	Name string `json:"name"` // Display name
	Time string `json:"time"` // Free-form display string, never parsed
}

// AttendanceStatus is the recorded outcome of a class. The zero value means unmarked.
type AttendanceStatus string

const (
	StatusUnmarked AttendanceStatus = ""
	StatusAttended AttendanceStatus = "attended"
	StatusMissed   AttendanceStatus = "missed"
)

// Valid reports whether s can be stored in an AttendanceLog.
func (s AttendanceStatus) Valid() bool {
	return s == StatusAttended || s == StatusMissed
}

// ParseStatus accepts the stored spelling in any letter case.
func ParseStatus(raw string) (AttendanceStatus, error) {
	s := AttendanceStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return StatusUnmarked, ValidationErrors{{Field: "status", Message: fmt.Sprintf("must be %q or %q", StatusAttended, StatusMissed)}}
	}
	return s, nil
}

// AttendanceLog maps ClassRecord.ID to its latest status
type AttendanceLog map[string]AttendanceStatus

// Clone returns an independent copy of the log.
func (l AttendanceLog) Clone() AttendanceLog {
	out := make(AttendanceLog, len(l))
	for id, s := range l {
		out[id] = s
	}
	return out
}

// DerivedSummary is computed from the current collections and never persisted
type DerivedSummary struct {
	AttendanceRate float64 `json:"attendanceRate"` // 0-100
	ClassesNeeded  int     `json:"classesNeeded"`  // Negative when the goal is already exceeded
	ClassesMissed  int     `json:"classesMissed"`
}

// RateText formats the rate the way the header shows it, e.g. "66.7%".
func (d DerivedSummary) RateText() string {
	return fmt.Sprintf("%.1f%%", d.AttendanceRate)
}

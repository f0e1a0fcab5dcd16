package models

import "time"

// Occurrence is a single resolved firing of a schedule: an absolute instant
// plus the display fields a dashboard or dispatcher needs. Occurrences are
// always derived from the schedule definition on demand and never persisted.
type Occurrence struct {
	ScheduleID   string    `json:"scheduleId"`
	ScheduleName string    `json:"scheduleName,omitempty"`
	GroupID      string    `json:"groupId"`
	GroupName    string    `json:"groupName,omitempty"`
	At           time.Time `json:"at"`
	Message      string    `json:"message,omitempty"`
}

package models

import "time"

// DeliveryStatus is the outcome of one send attempt to one recipient over one
// channel.
type DeliveryStatus string

const (
	StatusSent    DeliveryStatus = "sent"
	StatusFailed  DeliveryStatus = "failed"
	StatusNotSent DeliveryStatus = "not_sent"
)

// RecipientStatus reports how a single recipient fared on a single channel.
// Error carries the failure detail when Status is failed.
type RecipientStatus struct {
	ContactID   string         `json:"contactId"`
	ContactName string         `json:"contactName,omitempty"`
	Channel     string         `json:"channel"`
	Status      DeliveryStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
}

// DispatchResult is the state of one (schedule, date) firing. A row is
// claimed as pending before any send happens, then settled to fired, failed,
// or skipped.
type DispatchResult string

const (
	ResultPending DispatchResult = "pending"
	ResultFired   DispatchResult = "fired"
	ResultFailed  DispatchResult = "failed"
	ResultSkipped DispatchResult = "skipped"
)

// DispatchRecord is the persisted outcome of one firing: which schedule, for
// which occurrence date, what happened, and the per-recipient statuses.
type DispatchRecord struct {
	ID         string            `json:"id"`
	ScheduleID string            `json:"scheduleId"`
	GroupID    string            `json:"groupId"`
	FireDate   string            `json:"fireDate"`
	FiredAt    time.Time         `json:"firedAt"`
	Result     DispatchResult    `json:"result"`
	Statuses   []RecipientStatus `json:"statuses,omitempty"`
}

// Sent reports whether at least one recipient received the message.
func (r *DispatchRecord) Sent() bool {
	for _, st := range r.Statuses {
		if st.Status == StatusSent {
			return true
		}
	}
	return false
}

package models

import "time"

// Contact is a message recipient inside a group. A contact may be reachable
// over more than one channel; the per-channel address fields are optional and
// a channel simply reports not_sent when its address is missing.
type Contact struct {
	ID             string `json:"id"`
	GroupID        string `json:"groupId"`
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	TelegramChatID int64  `json:"telegramChatId,omitempty"`
}

// Group owns schedules and the contacts they are delivered to. Timezone is
// the group owner's IANA zone and is the fallback for schedules that carry
// none of their own. Channels names the delivery channels dispatch fans out
// to for this group.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone,omitempty"`
	Channels  []string  `json:"channels,omitempty"`
	Contacts  []Contact `json:"contacts,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

package models

import "time"

// Search projections are denormalized index documents keyed by the entity id.
// They are never authoritative.

// PeopleSearch mirrors a Person
type PeopleSearch struct {
	ID         int64      `json:"id"`
	PeopleCode string     `json:"people_code,omitempty"`
	FullName   string     `json:"full_name,omitempty"`
	LeaveDate  *time.Time `json:"leave_date,omitempty"`
}

// PetitionSearch mirrors a Petition
type PetitionSearch struct {
	ID      int64     `json:"id"`
	Subject string    `json:"subject,omitempty"`
	Status  Status    `json:"status"`
	Date    time.Time `json:"date"`
	Sender  string    `json:"sender,omitempty"`
}

// ReplySearch mirrors a Reply and embeds its petition's projection
type ReplySearch struct {
	ID       int64          `json:"id"`
	Subject  string         `json:"subject,omitempty"`
	Status   Status         `json:"status"`
	Date     time.Time      `json:"date"`
	Petition PetitionSearch `json:"petition"`
	Replier  string         `json:"replier,omitempty"`
}

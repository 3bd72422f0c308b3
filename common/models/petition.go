package models

import "time"

// ContentBody is shared by petitions and replies
type ContentBody struct {
	Subject string    `db:"subject" json:"subject"`
	Content string    `db:"content" json:"content"`
	Status  Status    `db:"status" json:"status"`
	Date    time.Time `db:"date" json:"date"`
}

// User is an account able to author replies
// Maps to: users table
type User struct {
	ID          int64  `db:"id" json:"id"`
	Username    string `db:"username" json:"username"`
	IdentityUID string `db:"identity_uid" json:"-"`
}

// Petition is a citizen request
// Maps to: petitions table
type Petition struct {
	ID       int64       `db:"id" json:"id"`
	SenderID int64       `db:"sender_id" json:"sender_id"`
	Body     ContentBody `json:"body"`
}

// Reply answers exactly one petition
// Maps to: replies table
type Reply struct {
	ID         int64       `db:"id" json:"id"`
	PetitionID int64       `db:"petition_id" json:"petition_id"`
	ReplierID  int64       `db:"replier_id" json:"replier_id"`
	Body       ContentBody `json:"body"`

	// Populated on read
	Petition *Petition `json:"petition,omitempty"`
	Replier  *User     `json:"replier,omitempty"`
}

// ReplyContent is the caller supplied part of a new reply
type ReplyContent struct {
	PetitionID int64
	Subject    string
	Content    string
	Date       time.Time
}

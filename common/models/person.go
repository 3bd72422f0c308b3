package models

import "time"

// Person represents a resident record
// Maps to: people table (mobilization columns are embedded)
type Person struct {
	ID         int64  `db:"id" json:"id"`
	PeopleCode string `db:"people_code" json:"people_code"`
	FullName   string `db:"full_name" json:"full_name"`

	// Current relocation status, nil when the person never left
	Mobilization *Mobilization `json:"mobilization,omitempty"`
}

// Mobilization is a Person's current relocation/absence snapshot.
// Owned by the Person; overwritten in place on every new absence.
type Mobilization struct {
	LeaveDate   time.Time `db:"leave_date" json:"leave_date"`
	LeaveReason string    `db:"leave_reason" json:"leave_reason"`
	NewAddress  string    `db:"new_address" json:"new_address"`
}

// IDCard links an identity card number to a person
// Maps to: id_cards table
type IDCard struct {
	ID           int64  `db:"id" json:"id"`
	IDCardNumber string `db:"id_card_number" json:"id_card_number"`
	PersonID     int64  `db:"person_id" json:"person_id"`
}

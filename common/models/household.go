package models

import "time"

// Household is a residence unit
// Maps to: households table
type Household struct {
	ID            int64  `db:"id" json:"id"`
	HouseholdCode string `db:"household_code" json:"household_code"`
	Address       string `db:"address" json:"address"`
}

// FamilyMember links a person to a household.
// Maps to: family_members table, keyed by (person_id, household_id)
type FamilyMember struct {
	PersonID     int64  `db:"person_id" json:"person_id"`
	HouseholdID  int64  `db:"household_id" json:"household_id"`
	HostRelation string `db:"host_relation" json:"host_relation"`

	// Populated on read
	Person *Person `json:"person,omitempty"`
}

// NewMember is one entry of an addFamilyMembers batch
type NewMember struct {
	PersonID     int64  `json:"id"`
	HostRelation string `json:"host_relation"`
}

// HouseholdHistory is an append-only ledger entry
// Maps to: household_history table
type HouseholdHistory struct {
	ID             int64     `db:"id" json:"id"`
	HouseholdID    int64     `db:"household_id" json:"household_id"`
	AffectPersonID int64     `db:"affect_person_id" json:"affect_person_id"`
	Event          Event     `db:"event" json:"event"`
	Date           time.Time `db:"date" json:"date"`
}

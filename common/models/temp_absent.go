package models

import (
	"fmt"
	"time"
)

// DateInterval is a closed [From, To] range
type DateInterval struct {
	From time.Time `db:"from_date" json:"from"`
	To   time.Time `db:"to_date" json:"to"`
}

// NewDateInterval validates that from does not come after to
func NewDateInterval(from, to time.Time) (DateInterval, error) {
	if from.IsZero() || to.IsZero() {
		return DateInterval{}, fmt.Errorf("%w: both dates are required", ErrInvalidDateInterval)
	}
	if from.After(to) {
		return DateInterval{}, fmt.Errorf("%w: from %s is after to %s",
			ErrInvalidDateInterval, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return DateInterval{From: from, To: to}, nil
}

// TempAbsent is a temporary absence record
// Maps to: temp_absents table
type TempAbsent struct {
	ID                 int64        `db:"id" json:"id"`
	Code               string       `db:"temp_absent_code" json:"code"`
	Interval           DateInterval `json:"interval"`
	PersonID           int64        `db:"person_id" json:"person_id"`
	TempResidencePlace string       `db:"temp_residence_place" json:"temp_residence_place"`
	Reason             string       `db:"reason" json:"reason"`

	// Populated on read
	Person *Person `json:"person,omitempty"`
}

// TempAbsentRequest carries the input of createTempAbsent after parsing
type TempAbsentRequest struct {
	IDCardNumber string
	Interval     DateInterval
	Place        string
	Reason       string
}

package models

import (
	"errors"
	"fmt"
)

// Not found errors, one per entity so callers can tell them apart
var (
	ErrPersonNotFound     = errors.New("person not found")
	ErrHouseholdNotFound  = errors.New("household not found")
	ErrPetitionNotFound   = errors.New("petition not found")
	ErrReplyNotFound      = errors.New("reply not found")
	ErrTempAbsentNotFound = errors.New("temp absent not found")
	ErrUserNotFound       = errors.New("user not found")
)

// State transition errors
var (
	ErrInvalidPetitionStatus    = errors.New("invalid petition status")
	ErrInvalidReplyUpdateStatus = errors.New("invalid reply update status")
)

// Input and consistency errors
var (
	ErrPersonAlreadyInHousehold = errors.New("person already belongs to a household")
	ErrInvalidDate              = errors.New("invalid date")
	ErrInvalidDateInterval      = errors.New("invalid date interval")
	ErrInvalidDateRange         = errors.New("invalid date range")
	ErrInvalidFilterExpression  = errors.New("invalid filter expression")
	ErrDuplicateTempAbsentCode  = errors.New("duplicate temp absent code")
)

// InvalidReplyUpdateStatusError is returned when a reply cannot be accepted
// from its current status. It matches ErrInvalidReplyUpdateStatus.
type InvalidReplyUpdateStatusError struct {
	Status Status
}

func (e *InvalidReplyUpdateStatusError) Error() string {
	return fmt.Sprintf("invalid reply update status: %s", e.Status)
}

func (e *InvalidReplyUpdateStatusError) Is(target error) bool {
	return target == ErrInvalidReplyUpdateStatus
}

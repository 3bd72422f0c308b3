// Package workflow holds the status transition rules for petitions, replies and
// temporary absences. Functions here only decide and mutate the entities they are
// handed; loading and persisting them is the caller's job, inside one transaction.
package workflow

import (
	"fmt"

	"github.com/qldp/registry/common/models"
)

// transitions lists the legal next states for each status
var transitions = map[models.Status][]models.Status{
	models.StatusWaitForReply: {models.StatusReplied},
	models.StatusPending:      {models.StatusSentToUser},
}

// CanTransition reports whether from -> to is a legal move
func CanTransition(from, to models.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NewReply builds a PENDING reply to petition authored by replier.
// The petition must be waiting for a reply.
func NewReply(petition *models.Petition, replier *models.User, content models.ReplyContent) (*models.Reply, error) {
	if petition == nil {
		return nil, models.ErrPetitionNotFound
	}
	if replier == nil {
		return nil, models.ErrUserNotFound
	}
	if petition.Body.Status != models.StatusWaitForReply {
		return nil, fmt.Errorf("%w: petition %d is %s", models.ErrInvalidPetitionStatus, petition.ID, petition.Body.Status)
	}

	return &models.Reply{
		PetitionID: petition.ID,
		ReplierID:  replier.ID,
		Body: models.ContentBody{
			Subject: content.Subject,
			Content: content.Content,
			Status:  models.StatusPending,
			Date:    content.Date,
		},
		Petition: petition,
		Replier:  replier,
	}, nil
}

// AcceptReply moves reply to SENT_TO_USER and its petition to REPLIED.
// Nothing is mutated when the reply is not PENDING.
func AcceptReply(reply *models.Reply) error {
	if reply.Petition == nil {
		return models.ErrPetitionNotFound
	}
	if !CanTransition(reply.Body.Status, models.StatusSentToUser) {
		return &models.InvalidReplyUpdateStatusError{Status: reply.Body.Status}
	}

	reply.Body.Status = models.StatusSentToUser
	// A petition may already be REPLIED through another accepted reply.
	reply.Petition.Body.Status = models.StatusReplied
	return nil
}

// NewTempAbsent builds the absence record for person
func NewTempAbsent(person *models.Person, req models.TempAbsentRequest, code string) *models.TempAbsent {
	return &models.TempAbsent{
		Code:               code,
		Interval:           req.Interval,
		PersonID:           person.ID,
		TempResidencePlace: req.Place,
		Reason:             req.Reason,
		Person:             person,
	}
}

// ApplyMobilization upserts person's mobilization from the absence, last write wins
func ApplyMobilization(person *models.Person, absent *models.TempAbsent) {
	if person.Mobilization == nil {
		person.Mobilization = &models.Mobilization{}
	}
	person.Mobilization.LeaveDate = absent.Interval.From
	person.Mobilization.LeaveReason = absent.Reason
	person.Mobilization.NewAddress = absent.TempResidencePlace
}

// TempAbsentHistory derives the household ledger entry for an applied absence.
// ApplyMobilization must have run first.
func TempAbsentHistory(householdID int64, person *models.Person) *models.HouseholdHistory {
	return &models.HouseholdHistory{
		HouseholdID:    householdID,
		AffectPersonID: person.ID,
		Event:          models.EventTempAbsent,
		Date:           person.Mobilization.LeaveDate,
	}
}

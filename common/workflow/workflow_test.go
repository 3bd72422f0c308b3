package workflow

import (
	"testing"
	"time"

	"github.com/qldp/registry/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitingPetition() *models.Petition {
	return &models.Petition{
		ID: 1,
		Body: models.ContentBody{
			Subject: "road repair",
			Status:  models.StatusWaitForReply,
		},
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.StatusWaitForReply, models.StatusReplied))
	assert.True(t, CanTransition(models.StatusPending, models.StatusSentToUser))

	assert.False(t, CanTransition(models.StatusReplied, models.StatusWaitForReply))
	assert.False(t, CanTransition(models.StatusSentToUser, models.StatusPending))
	assert.False(t, CanTransition(models.StatusPending, models.StatusReplied))
}

func TestNewReply(t *testing.T) {
	petition := waitingPetition()
	replier := &models.User{ID: 9, Username: "officer"}
	date := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	reply, err := NewReply(petition, replier, models.ReplyContent{
		PetitionID: 1,
		Subject:    "re: road repair",
		Content:    "need info",
		Date:       date,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, reply.Body.Status)
	assert.Equal(t, int64(1), reply.PetitionID)
	assert.Equal(t, int64(9), reply.ReplierID)
	assert.Equal(t, date, reply.Body.Date)
	assert.Equal(t, models.StatusWaitForReply, petition.Body.Status, "petition must be unchanged")
}

func TestNewReply_Errors(t *testing.T) {
	replier := &models.User{ID: 9}

	_, err := NewReply(nil, replier, models.ReplyContent{})
	assert.ErrorIs(t, err, models.ErrPetitionNotFound)

	_, err = NewReply(waitingPetition(), nil, models.ReplyContent{})
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	replied := waitingPetition()
	replied.Body.Status = models.StatusReplied
	_, err = NewReply(replied, replier, models.ReplyContent{})
	assert.ErrorIs(t, err, models.ErrInvalidPetitionStatus)
}

func TestAcceptReply(t *testing.T) {
	petition := waitingPetition()
	reply := &models.Reply{
		ID:       5,
		Body:     models.ContentBody{Status: models.StatusPending},
		Petition: petition,
	}

	require.NoError(t, AcceptReply(reply))
	assert.Equal(t, models.StatusSentToUser, reply.Body.Status)
	assert.Equal(t, models.StatusReplied, petition.Body.Status)

	// second accept is rejected and carries the current status
	err := AcceptReply(reply)
	require.ErrorIs(t, err, models.ErrInvalidReplyUpdateStatus)

	var statusErr *models.InvalidReplyUpdateStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, models.StatusSentToUser, statusErr.Status)
}

func TestAcceptReply_NoMutationOnFailure(t *testing.T) {
	petition := waitingPetition()
	reply := &models.Reply{
		Body:     models.ContentBody{Status: models.Status("DRAFT")},
		Petition: petition,
	}

	require.Error(t, AcceptReply(reply))
	assert.Equal(t, models.Status("DRAFT"), reply.Body.Status)
	assert.Equal(t, models.StatusWaitForReply, petition.Body.Status)
}

func TestApplyMobilization(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	person := &models.Person{ID: 3}

	first := NewTempAbsent(person, models.TempAbsentRequest{
		Interval: models.DateInterval{From: jan, To: feb},
		Place:    "City X",
		Reason:   "work",
	}, "CODE0001")
	ApplyMobilization(person, first)

	require.NotNil(t, person.Mobilization)
	assert.Equal(t, jan, person.Mobilization.LeaveDate)
	assert.Equal(t, "work", person.Mobilization.LeaveReason)
	assert.Equal(t, "City X", person.Mobilization.NewAddress)

	existing := person.Mobilization
	second := NewTempAbsent(person, models.TempAbsentRequest{
		Interval: models.DateInterval{From: feb, To: feb.AddDate(0, 1, 0)},
		Place:    "City Y",
		Reason:   "study",
	}, "CODE0002")
	ApplyMobilization(person, second)

	assert.Same(t, existing, person.Mobilization, "mobilization is overwritten in place")
	assert.Equal(t, feb, person.Mobilization.LeaveDate)
	assert.Equal(t, "City Y", person.Mobilization.NewAddress)

	history := TempAbsentHistory(11, person)
	assert.Equal(t, int64(11), history.HouseholdID)
	assert.Equal(t, int64(3), history.AffectPersonID)
	assert.Equal(t, models.EventTempAbsent, history.Event)
	assert.Equal(t, feb, history.Date)
}

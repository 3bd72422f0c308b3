// Package indexsync mirrors committed primary store changes into the search
// index. Dispatch is fire-and-forget: jobs are published to a queue after the
// transaction commits and applied by background workers. A job whose target
// projection does not exist is skipped, never created.
package indexsync

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/qldp/registry/common/models"
)

// Topic is the queue topic carrying sync jobs
const Topic = "index-sync"

// Kind identifies how a job is applied
type Kind string

const (
	// KindPatch merges Patch (RFC 7386) into an existing projection
	KindPatch Kind = "patch"
	// KindReplyCreated derives a reply projection from its petition's projection
	KindReplyCreated Kind = "reply_created"
)

// Job is one index update
type Job struct {
	ID       uuid.UUID       `json:"id"`
	Kind     Kind            `json:"kind"`
	Index    string          `json:"index"`
	EntityID int64           `json:"entity_id"`
	Patch    json.RawMessage `json:"patch,omitempty"`
	Reply    *ReplySeed      `json:"reply,omitempty"`
}

// ReplySeed carries the primary store fields of a new reply
type ReplySeed struct {
	PetitionID int64         `json:"petition_id"`
	Subject    string        `json:"subject"`
	Status     models.Status `json:"status"`
	Date       time.Time     `json:"date"`
	Replier    string        `json:"replier"`
}

// Projection returns the reply projection embedding petition
func (s *ReplySeed) Projection(id int64, petition models.PetitionSearch) models.ReplySearch {
	return models.ReplySearch{
		ID:       id,
		Subject:  s.Subject,
		Status:   s.Status,
		Date:     s.Date,
		Petition: petition,
		Replier:  s.Replier,
	}
}

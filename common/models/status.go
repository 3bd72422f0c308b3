package models

// Status is the lifecycle state carried by a ContentBody
type Status string

const (
	// Petition states
	StatusWaitForReply Status = "WAIT_FOR_REPLY"
	StatusReplied      Status = "REPLIED"

	// Reply states
	StatusPending    Status = "PENDING"
	StatusSentToUser Status = "SENT_TO_USER"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusWaitForReply, StatusReplied, StatusPending, StatusSentToUser:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Event identifies what happened to a household in its history ledger
type Event string

const (
	EventTempAbsent Event = "TEMP_ABSENT"
)

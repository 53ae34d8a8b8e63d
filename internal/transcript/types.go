package transcript

import (
	"time"

	"github.com/IsaacCespedes/BriefingRoom/internal/webvtt"
)

// Status is the lifecycle state of a transcript record.
type Status string

const (
	// StatusPending means no finished caption artifact exists yet at the
	// provider. Not a failure — callers re-trigger reconciliation later.
	StatusPending Status = "pending"
	// StatusProcessing means a ready artifact was located and a fetch is
	// (or was) in flight.
	StatusProcessing Status = "processing"
	// StatusCompleted means the record holds usable transcript content.
	StatusCompleted Status = "completed"
	// StatusFailed means the provider artifact was ready but parsed to
	// nothing usable. Not retried automatically.
	StatusFailed Status = "failed"
)

// Source tags recorded in Record.Source.
const (
	SourceDaily        = "daily_co"
	SourceLocalStorage = "local_storage"
)

// Record is the stored transcript for one interview. Exactly one
// non-deleted record exists per interview (single-room assumption);
// RoomName is the join key to the provider's caption resource.
type Record struct {
	ID               string           `json:"id"`
	InterviewID      string           `json:"interview_id"`
	RoomName         string           `json:"room_name"`
	Status           Status           `json:"status"`
	Text             string           `json:"transcript_text"`
	RawVTT           string           `json:"transcript_webvtt,omitempty"`
	Segments         []webvtt.Segment `json:"segments,omitempty"`
	Source           string           `json:"source,omitempty"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	EndedAt          *time.Time       `json:"ended_at,omitempty"`
	DurationSeconds  *int             `json:"duration_seconds,omitempty"`
	ParticipantCount *int             `json:"participant_count,omitempty"`
	FailureReason    string           `json:"failure_reason,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Authoritative reports whether the record was completed from a provider
// fetch. Authoritative records are never overwritten by client
// submissions and short-circuit further reconciliation.
func (r *Record) Authoritative() bool {
	return r != nil && r.Status == StatusCompleted && r.RawVTT != ""
}

// ClientSegment is one utterance captured client-side during the call.
type ClientSegment struct {
	Speaker       string  `json:"speaker,omitempty"`
	ParticipantID string  `json:"participantId,omitempty"`
	Text          string  `json:"text"`
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
}

// ClientSubmission is a transcript captured locally in the browser and
// posted by the frontend, typically before the provider has finished
// processing its own recording.
type ClientSubmission struct {
	Segments        []ClientSegment `json:"segments"`
	Source          string          `json:"source,omitempty"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	EndedAt         *time.Time      `json:"ended_at,omitempty"`
	DurationSeconds *int            `json:"duration_seconds,omitempty"`
}

// StoredEvent is the NATS payload published to briefing.transcript.stored
// whenever a record transitions to completed.
type StoredEvent struct {
	TranscriptID     string `json:"transcript_id"`
	InterviewID      string `json:"interview_id"`
	RoomName         string `json:"room_name"`
	Source           string `json:"source"`
	DurationSeconds  *int   `json:"duration_seconds,omitempty"`
	ParticipantCount *int   `json:"participant_count,omitempty"`
	Transcript       string `json:"transcript"`
}

// RoomNameForInterview returns the provider room name provisioned for an
// interview. One interview maps to exactly one room.
func RoomNameForInterview(interviewID string) string {
	return "interview-" + interviewID
}

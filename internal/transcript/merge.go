package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IsaacCespedes/BriefingRoom/internal/webvtt"
)

// MergeClientSubmission reconciles a client-captured transcript against
// the stored record for an interview. Provider data wins: a completed
// record populated from the provider is returned unchanged (the late
// submission is a benign race, not an error). Otherwise the client data
// becomes the current best-available transcript and the record completes.
// An empty segment list is rejected before any store mutation.
func (r *Reconciler) MergeClientSubmission(ctx context.Context, interviewID string, sub ClientSubmission) (*Record, error) {
	if len(sub.Segments) == 0 {
		return nil, fmt.Errorf("%w: no segments provided", ErrInvalidSubmission)
	}

	roomName := RoomNameForInterview(interviewID)
	unlock := r.rooms.lock(roomName)
	defer unlock()

	rec, err := r.store.GetByInterviewID(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("load transcript for interview %s: %w", interviewID, err)
	}
	if rec.Authoritative() {
		slog.Info("transcript: provider record is authoritative, client submission ignored",
			"interview_id", interviewID,
		)
		return rec, nil
	}

	source := sub.Source
	if source == "" {
		source = SourceLocalStorage
	}
	count := countParticipants(sub.Segments)

	rec, err = r.upsert(ctx, rec, roomName, interviewID, func(rec *Record) {
		rec.Status = StatusCompleted
		rec.Text = renderSubmissionText(sub.Segments)
		rec.Segments = convertSegments(sub.Segments)
		rec.Source = source
		rec.StartedAt = sub.StartedAt
		rec.EndedAt = sub.EndedAt
		rec.DurationSeconds = sub.DurationSeconds
		rec.ParticipantCount = count
		rec.FailureReason = ""
	})
	if err != nil {
		return nil, err
	}

	slog.Info("transcript: stored from client submission",
		"interview_id", interviewID,
		"segments", len(sub.Segments),
		"source", source,
	)
	r.announce(rec)
	return rec, nil
}

// renderSubmissionText joins segments as "speaker: text" lines (bare text
// when no speaker), in submission order. Segments with empty text are
// skipped.
func renderSubmissionText(segments []ClientSegment) string {
	var lines []string
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if seg.Speaker != "" {
			lines = append(lines, seg.Speaker+": "+text)
		} else {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}

// countParticipants counts distinct values among segment speakers and
// participant ids. Each participant id contributes a synthetic label so
// it never collides with a speaker label. Returns nil when the segments
// carry no identity at all.
func countParticipants(segments []ClientSegment) *int {
	speakers := make(map[string]struct{})
	for _, seg := range segments {
		if seg.Speaker != "" {
			speakers[seg.Speaker] = struct{}{}
		}
		if seg.ParticipantID != "" {
			speakers["participant_"+seg.ParticipantID] = struct{}{}
		}
	}
	if len(speakers) == 0 {
		return nil
	}
	n := len(speakers)
	return &n
}

func convertSegments(segments []ClientSegment) []webvtt.Segment {
	out := make([]webvtt.Segment, len(segments))
	for i, seg := range segments {
		out[i] = webvtt.Segment{
			Speaker:   seg.Speaker,
			Text:      seg.Text,
			StartTime: seg.StartTime,
			EndTime:   seg.EndTime,
		}
	}
	return out
}

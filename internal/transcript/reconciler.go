// Package transcript owns the transcript lifecycle: reconciling
// provider-sourced captions against stored records, merging
// client-submitted captures, and driving the
// pending/processing/completed/failed state machine.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IsaacCespedes/BriefingRoom/internal/webvtt"
)

// Store abstracts the record store operations the reconciler needs.
// Implementations must be atomic at the single-record level. Get methods
// return (nil, nil) when no record exists.
type Store interface {
	GetByInterviewID(ctx context.Context, interviewID string) (*Record, error)
	GetByRoomName(ctx context.Context, roomName string) (*Record, error)
	Create(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error
}

// ProviderHandle identifies a caption resource at the provider. A handle
// with Ready=false is a best-effort match whose artifact cannot be
// fetched yet.
type ProviderHandle struct {
	ID    string
	Ready bool
}

// CaptionProvider locates and fetches caption artifacts. Locate returns
// (nil, nil) when the provider has no entry for the room at all. FetchRaw
// returns an error wrapping ErrNotAvailable when the artifact vanished
// between locate and fetch, and ErrTransientProvider for everything
// retryable.
type CaptionProvider interface {
	Locate(ctx context.Context, roomName string) (*ProviderHandle, error)
	FetchRaw(ctx context.Context, handle *ProviderHandle) (string, error)
}

// PublishFunc is the callback signature for publishing to NATS.
type PublishFunc func(subject string, data []byte) error

// FailureNotifier receives a notification when a record transitions to
// failed on malformed caption content.
type FailureNotifier interface {
	NotifyTranscriptFailed(ctx context.Context, interviewID, roomName, reason string) error
}

// StoredSubject is the NATS subject completed transcripts are announced on.
const StoredSubject = "briefing.transcript.stored"

// Reconciler drives all mutations of transcript records. No other
// component writes to the store.
type Reconciler struct {
	store    Store
	provider CaptionProvider
	publish  PublishFunc
	notifier FailureNotifier
	rooms    *roomLocks
}

// NewReconciler creates a Reconciler wired to the given store and caption
// provider.
func NewReconciler(store Store, provider CaptionProvider) *Reconciler {
	return &Reconciler{
		store:    store,
		provider: provider,
		rooms:    newRoomLocks(),
	}
}

// SetPublisher wires an optional NATS publish callback for stored-event
// announcements.
func (r *Reconciler) SetPublisher(fn PublishFunc) {
	r.publish = fn
}

// SetFailureNotifier wires an optional notifier for failed transitions.
func (r *Reconciler) SetFailureNotifier(n FailureNotifier) {
	r.notifier = n
}

// Reconcile fetches, parses, and stores the provider transcript for a
// room. It is idempotent: once a record is completed from provider data,
// repeated calls return it unchanged without touching the provider. When
// the provider has nothing ready the record is left (or created) pending,
// which signals "try again later", not failure. Transient provider errors
// are returned wrapping ErrTransientProvider with stored state untouched.
func (r *Reconciler) Reconcile(ctx context.Context, roomName, interviewID string) (*Record, error) {
	unlock := r.rooms.lock(roomName)
	defer unlock()

	rec, err := r.store.GetByRoomName(ctx, roomName)
	if err != nil {
		return nil, fmt.Errorf("load transcript for room %s: %w", roomName, err)
	}
	if rec.Authoritative() {
		slog.Debug("transcript: already completed from provider, skipping fetch",
			"room_name", roomName,
		)
		return rec, nil
	}

	handle, err := r.provider.Locate(ctx, roomName)
	if err != nil {
		return nil, fmt.Errorf("%w: locate captions for room %s: %w", ErrTransientProvider, roomName, err)
	}

	if handle == nil || !handle.Ready {
		return r.markPending(ctx, rec, roomName, interviewID)
	}

	// A ready artifact exists; record that a fetch is in flight before
	// touching the provider again, so the state machine is observable.
	rec, err = r.upsert(ctx, rec, roomName, interviewID, func(rec *Record) {
		rec.Status = StatusProcessing
	})
	if err != nil {
		return nil, err
	}

	raw, err := r.provider.FetchRaw(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrNotAvailable) {
			// The artifact disappeared between locate and fetch.
			// Treat as not ready rather than an error.
			return r.markPending(ctx, rec, roomName, interviewID)
		}
		return nil, fmt.Errorf("%w: fetch captions for room %s: %w", ErrTransientProvider, roomName, err)
	}

	segments := webvtt.ParseSegments(raw)
	if len(segments) == 0 {
		// Ready and available, yet nothing usable in it. A corrupt
		// artifact will not become valid on retry.
		reason := fmt.Sprintf("%v: artifact %s parsed to zero segments", ErrMalformedCaptions, handle.ID)
		rec, err = r.upsert(ctx, rec, roomName, interviewID, func(rec *Record) {
			rec.Status = StatusFailed
			rec.FailureReason = reason
		})
		if err != nil {
			return nil, err
		}
		slog.Warn("transcript: caption artifact unusable",
			"room_name", roomName,
			"artifact_id", handle.ID,
		)
		if r.notifier != nil {
			if nerr := r.notifier.NotifyTranscriptFailed(ctx, interviewID, roomName, reason); nerr != nil {
				slog.Warn("transcript: failure notification failed", "error", nerr)
			}
		}
		return rec, nil
	}

	md := webvtt.ExtractMetadata(raw)
	rec, err = r.upsert(ctx, rec, roomName, interviewID, func(rec *Record) {
		rec.Status = StatusCompleted
		rec.Text = webvtt.ParseText(raw)
		rec.RawVTT = raw
		rec.Segments = segments
		rec.Source = SourceDaily
		rec.DurationSeconds = md.DurationSeconds
		rec.ParticipantCount = md.ParticipantCount
		rec.FailureReason = ""
		// StartedAt/EndedAt stay unset: VTT offsets are relative, and
		// absolute clock values would need a separate provider call.
	})
	if err != nil {
		return nil, err
	}

	slog.Info("transcript: stored from provider",
		"room_name", roomName,
		"interview_id", interviewID,
		"segments", len(segments),
	)
	r.announce(rec)
	return rec, nil
}

// markPending upserts a pending record, preserving any previously stored
// partial data on an existing one.
func (r *Reconciler) markPending(ctx context.Context, rec *Record, roomName, interviewID string) (*Record, error) {
	rec, err := r.upsert(ctx, rec, roomName, interviewID, func(rec *Record) {
		rec.Status = StatusPending
	})
	if err != nil {
		return nil, err
	}
	slog.Info("transcript: captions not yet available",
		"room_name", roomName,
		"interview_id", interviewID,
	)
	return rec, nil
}

// upsert applies mutate to the existing record, or to a fresh one when
// rec is nil, and persists it.
func (r *Reconciler) upsert(ctx context.Context, rec *Record, roomName, interviewID string, mutate func(*Record)) (*Record, error) {
	if rec == nil {
		rec = &Record{
			InterviewID: interviewID,
			RoomName:    roomName,
		}
		mutate(rec)
		if err := r.store.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("create transcript record: %w", err)
		}
		return rec, nil
	}
	mutate(rec)
	if err := r.store.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("update transcript record: %w", err)
	}
	return rec, nil
}

// announce publishes a StoredEvent for downstream consumers. Best effort;
// a publish failure never fails the reconcile.
func (r *Reconciler) announce(rec *Record) {
	if r.publish == nil {
		return
	}
	payload, err := json.Marshal(StoredEvent{
		TranscriptID:     rec.ID,
		InterviewID:      rec.InterviewID,
		RoomName:         rec.RoomName,
		Source:           rec.Source,
		DurationSeconds:  rec.DurationSeconds,
		ParticipantCount: rec.ParticipantCount,
		Transcript:       rec.Text,
	})
	if err != nil {
		slog.Error("transcript: failed to marshal stored event", "error", err)
		return
	}
	if err := r.publish(StoredSubject, payload); err != nil {
		slog.Warn("transcript: failed to publish stored event",
			"subject", StoredSubject,
			"error", err,
		)
	}
}

package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

const sampleVTT = `WEBVTT

00:00:00.000 --> 00:00:05.000
Speaker 0: Hello, this is a test.

00:00:05.000 --> 00:00:10.000
Speaker 1: Hi there!

00:00:10.000 --> 00:00:15.000
Speaker 0: How are you doing today?
`

// mockStore is an in-memory implementation of Store for testing.
type mockStore struct {
	mu      sync.Mutex
	records map[string]*Record // keyed by interview_id
	nextID  int

	createCalls int
	updateCalls int
	getErr      error
	updateErr   error
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[string]*Record)}
}

func (m *mockStore) GetByInterviewID(_ context.Context, interviewID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[interviewID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *mockStore) GetByRoomName(_ context.Context, roomName string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, rec := range m.records {
		if rec.RoomName == roomName {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockStore) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	m.nextID++
	rec.ID = fmt.Sprintf("rec-%d", m.nextID)
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	cp := *rec
	m.records[rec.InterviewID] = &cp
	return nil
}

func (m *mockStore) Update(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *rec
	m.records[rec.InterviewID] = &cp
	return nil
}

// mockProvider is a scripted CaptionProvider.
type mockProvider struct {
	mu          sync.Mutex
	handle      *ProviderHandle
	locateErr   error
	raw         string
	fetchErr    error
	locateCalls int
	fetchCalls  int
}

func (m *mockProvider) Locate(_ context.Context, _ string) (*ProviderHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locateCalls++
	return m.handle, m.locateErr
}

func (m *mockProvider) FetchRaw(_ context.Context, _ *ProviderHandle) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
	return m.raw, m.fetchErr
}

// recordingNotifier captures failure notifications.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) NotifyTranscriptFailed(_ context.Context, interviewID, _, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, interviewID+": "+reason)
	return nil
}

func TestReconcile_ProviderAbsent_CreatesPending(t *testing.T) {
	ms := newMockStore()
	r := NewReconciler(ms, &mockProvider{handle: nil})

	rec, err := r.Reconcile(context.Background(), "interview-abc", "abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Status != StatusPending {
		t.Errorf("expected pending, got %s", rec.Status)
	}
	if rec.Text != "" {
		t.Errorf("expected empty text, got %q", rec.Text)
	}
	if rec.RoomName != "interview-abc" || rec.InterviewID != "abc" {
		t.Errorf("unexpected identity: %+v", rec)
	}
	if ms.createCalls != 1 {
		t.Errorf("expected 1 create, got %d", ms.createCalls)
	}
}

func TestReconcile_ProviderNotReady_StaysPending(t *testing.T) {
	ms := newMockStore()
	prov := &mockProvider{handle: &ProviderHandle{ID: "tr-1", Ready: false}}
	r := NewReconciler(ms, prov)

	rec, err := r.Reconcile(context.Background(), "interview-abc", "abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Status != StatusPending {
		t.Errorf("expected pending, got %s", rec.Status)
	}
	if prov.fetchCalls != 0 {
		t.Errorf("a not-ready handle must not be fetched, got %d fetches", prov.fetchCalls)
	}
}

func TestReconcile_Ready_StoresCompleted(t *testing.T) {
	ms := newMockStore()
	prov := &mockProvider{
		handle: &ProviderHandle{ID: "tr-1", Ready: true},
		raw:    sampleVTT,
	}
	r := NewReconciler(ms, prov)

	var published []json.RawMessage
	r.SetPublisher(func(subject string, data []byte) error {
		if subject != StoredSubject {
			t.Errorf("unexpected subject %s", subject)
		}
		published = append(published, data)
		return nil
	})

	rec, err := r.Reconcile(context.Background(), "interview-abc", "abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", rec.Status)
	}
	if rec.RawVTT != sampleVTT {
		t.Error("raw captions must be retained verbatim")
	}
	if len(rec.Segments) != 3 {
		t.Errorf("expected 3 segments, got %d", len(rec.Segments))
	}
	if rec.DurationSeconds == nil || *rec.DurationSeconds != 15 {
		t.Errorf("expected duration 15, got %v", rec.DurationSeconds)
	}
	if rec.ParticipantCount == nil || *rec.ParticipantCount != 2 {
		t.Errorf("expected 2 participants, got %v", rec.ParticipantCount)
	}
	if rec.Source != SourceDaily {
		t.Errorf("expected source %s, got %s", SourceDaily, rec.Source)
	}
	if rec.StartedAt != nil || rec.EndedAt != nil {
		t.Error("absolute timestamps must stay unset on the provider path")
	}
	if len(published) != 1 {
		t.Fatalf("expected 1 stored event, got %d", len(published))
	}

	var evt StoredEvent
	if err := json.Unmarshal(published[0], &evt); err != nil {
		t.Fatalf("failed to unmarshal stored event: %v", err)
	}
	if evt.InterviewID != "abc" || evt.RoomName != "interview-abc" {
		t.Errorf("unexpected event identity: %+v", evt)
	}
}

func TestReconcile_Idempotent_AfterCompleted(t *testing.T) {
	ms := newMockStore()
	prov := &mockProvider{
		handle: &ProviderHandle{ID: "tr-1", Ready: true},
		raw:    sampleVTT,
	}
	r := NewReconciler(ms, prov)

	first, err := r.Reconcile(context.Background(), "interview-abc", "abc")
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	locates, fetches := prov.locateCalls, prov.fetchCalls

	second, err := r.Reconcile(context.Background(), "interview-abc", "abc")
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}

	if prov.locateCalls != locates || prov.fetchCalls != fetches {
		t.Error("a completed provider record must short-circuit without provider calls")
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("records drifted between calls:\nfirst:  %s\nsecond: %s", a, b)
	}
}

func TestReconcile_TransientLocateError_NoMutation(t *testing.T) {
	ms := newMockStore()
	prov := &mockProvider{locateErr: errors.New("connection reset")}
	r := NewReconciler(ms, prov)

	_, err := r.Reconcile(context.Background(), "interview-abc", "abc")
	if !errors.Is(err, ErrTransientProvider) {
		t.Fatalf("expected ErrTransientProvider, got %v", err)
	}
	if ms.createCalls != 0 || ms.updateCalls != 0 {
		t.Error("transient failures must not mutate stored state")
	}
}

func TestReconcile_TransientFetchError_LeavesProcessing(t *testing.T) {
	ms := newMockStore()
	prov := &mockProvider{
		handle:   &ProviderHandle{ID: "tr-1", Ready: true},
		fetchErr: errors.New("i/o timeout"),
	}
	r := NewReconciler(ms, prov)

	_, err := r.Reconcile(context.Background(), "interview-abc", "abc")
	if !errors.Is(err, ErrTransientProvider) {
		t.Fatalf("expected ErrTransientProvider, got %v", err)
	}

	stored := ms.records["abc"]
	if stored == nil {
		t.Fatal("expected record to exist")
	}
	if stored.Status != StatusProcessing {
		t.Errorf("expected record at its last persisted status (processing), got %s", stored.Status)
	}
}

func TestReconcile_FetchNotFound_BecomesPending(t *testing.T) {
	ms := newMockStore()
	prov := &mockProvider{
		handle:   &ProviderHandle{ID: "tr-1", Ready: true},
		fetchErr: fmt.Errorf("%w: gone", ErrNotAvailable),
	}
	r := NewReconciler(ms, prov)

	rec, err := r.Reconcile(context.Background(), "interview-abc", "abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Status != StatusPending {
		t.Errorf("a vanished artifact is not-yet-available, expected pending, got %s", rec.Status)
	}
}

func TestReconcile_MalformedCaptions_MarksFailed(t *testing.T) {
	ms := newMockStore()
	prov := &mockProvider{
		handle: &ProviderHandle{ID: "tr-1", Ready: true},
		raw:    "WEBVTT\n\n00:00:00.000 --> 00:00:05.000\n",
	}
	r := NewReconciler(ms, prov)
	notifier := &recordingNotifier{}
	r.SetFailureNotifier(notifier)

	rec, err := r.Reconcile(context.Background(), "interview-abc", "abc")
	if err != nil {
		t.Fatalf("malformed content surfaces in the record, not as an error; got %v", err)
	}
	if rec.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", rec.Status)
	}
	if rec.FailureReason == "" {
		t.Error("expected a diagnostic failure reason")
	}
	if len(notifier.calls) != 1 {
		t.Errorf("expected 1 failure notification, got %d", len(notifier.calls))
	}

	// A corrupt artifact does not become valid on retry, but retrying is
	// harmless and re-observes the same failure.
	again, err := r.Reconcile(context.Background(), "interview-abc", "abc")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if again.Status != StatusFailed {
		t.Errorf("expected failed on retry, got %s", again.Status)
	}
}

func TestReconcile_PreservesPartialDataWhilePending(t *testing.T) {
	ms := newMockStore()
	// A client submission completed the record earlier, without raw VTT.
	seedSegments := []ClientSegment{{Speaker: "Speaker 0", Text: "from the browser"}}
	r := NewReconciler(ms, &mockProvider{handle: nil})
	if _, err := r.MergeClientSubmission(context.Background(), "abc", ClientSubmission{Segments: seedSegments}); err != nil {
		t.Fatalf("seed merge: %v", err)
	}

	rec, err := r.Reconcile(context.Background(), "interview-abc", "abc")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if rec.Status != StatusPending {
		t.Errorf("expected pending while provider has nothing, got %s", rec.Status)
	}
	if rec.Text != "Speaker 0: from the browser" {
		t.Errorf("previously stored data must be preserved, got %q", rec.Text)
	}
	if ms.createCalls != 1 {
		t.Errorf("expected the existing record to be updated, not recreated; creates=%d", ms.createCalls)
	}
}

func TestReconcile_ConcurrentSameRoom_SingleCreate(t *testing.T) {
	ms := newMockStore()
	r := NewReconciler(ms, &mockProvider{handle: nil})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Reconcile(context.Background(), "interview-abc", "abc"); err != nil {
				t.Errorf("reconcile: %v", err)
			}
		}()
	}
	wg.Wait()

	if ms.createCalls != 1 {
		t.Errorf("racing reconciles for one room must produce exactly 1 create, got %d", ms.createCalls)
	}
	if len(ms.records) != 1 {
		t.Errorf("expected 1 record, got %d", len(ms.records))
	}
}

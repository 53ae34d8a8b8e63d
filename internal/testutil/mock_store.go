package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IsaacCespedes/BriefingRoom/internal/transcript"
)

// MockStore is a thread-safe in-memory implementation of transcript.Store
// for testing.
type MockStore struct {
	mu sync.Mutex

	Records map[string]*transcript.Record // keyed by interview_id

	GetErr    error
	CreateErr error
	UpdateErr error

	CreateCalls int
	UpdateCalls int

	nextID int
}

func NewMockStore() *MockStore {
	return &MockStore{Records: make(map[string]*transcript.Record)}
}

func (m *MockStore) GetByInterviewID(_ context.Context, interviewID string) (*transcript.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	rec, ok := m.Records[interviewID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *MockStore) GetByRoomName(_ context.Context, roomName string) (*transcript.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, rec := range m.Records {
		if rec.RoomName == roomName {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockStore) Create(_ context.Context, rec *transcript.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.nextID++
	rec.ID = fmt.Sprintf("rec-%d", m.nextID)
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	cp := *rec
	m.Records[rec.InterviewID] = &cp
	return nil
}

func (m *MockStore) Update(_ context.Context, rec *transcript.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	existing, ok := m.Records[rec.InterviewID]
	if !ok || existing.ID != rec.ID {
		return transcript.ErrNotFound
	}
	rec.UpdatedAt = time.Now().UTC()
	rec.CreatedAt = existing.CreatedAt
	cp := *rec
	m.Records[rec.InterviewID] = &cp
	return nil
}

package storage

import "sync"

// MemoryStore is an in-process StateStore for tests and dry runs.
type MemoryStore struct {
	mu     sync.Mutex
	states map[Key]DelegationState

	// Saves counts successful Save calls.
	Saves int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[Key]DelegationState)}
}

// Load returns the stored record or the zero state.
func (m *MemoryStore) Load(key Key) DelegationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[key]
}

// Save stores the record.
func (m *MemoryStore) Save(key Key, st DelegationState) error {
	if key.ProjectID == "" {
		return ErrEmptyProjectID
	}
	if st.NonDelegateCount < 0 {
		return ErrNegativeCount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = st
	m.Saves++
	return nil
}

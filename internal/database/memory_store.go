package database

import (
	"errors"
	"sort"
	"sync"
)

var RecordNotFoundError = errors.New("session record does not exist")

// MemoryRecordStore keeps session records in process memory. It is the
// default when no database is configured; records are lost on restart, which
// only costs the /sessions listing, not any live state.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]*SessionRecord
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string]*SessionRecord)}
}

func (ms *MemoryRecordStore) Get(userID string) (*SessionRecord, error) {
	if userID == "" {
		return nil, UserIdEmptyError
	}
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	record, ok := ms.records[userID]
	if !ok {
		return nil, RecordNotFoundError
	}
	clone := *record
	return &clone, nil
}

func (ms *MemoryRecordStore) Save(record *SessionRecord) error {
	if record.UserID == "" {
		return UserIdEmptyError
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	clone := *record
	ms.records[record.UserID] = &clone
	return nil
}

func (ms *MemoryRecordStore) Delete(userID string) error {
	if userID == "" {
		return UserIdEmptyError
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.records, userID)
	return nil
}

func (ms *MemoryRecordStore) List() ([]*SessionRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	records := make([]*SessionRecord, 0, len(ms.records))
	for _, record := range ms.records {
		clone := *record
		records = append(records, &clone)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })
	return records, nil
}

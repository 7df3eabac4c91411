package database

import (
	"errors"
	"time"
)

const SessionCollectionName = "sessions"

var UserIdEmptyError = errors.New("user_id is empty")

// SessionRecord is the persisted view of one user's session: enough to list
// known sessions across restarts, never the transport handle itself.
type SessionRecord struct {
	UserID          string    `bson:"user_id" json:"userId"`
	Status          string    `bson:"status" json:"status"`
	JID             string    `bson:"jid,omitempty" json:"jid,omitempty"`
	PushName        string    `bson:"push_name,omitempty" json:"pushName,omitempty"`
	LastConnectedAt time.Time `bson:"last_connected_at,omitempty" json:"lastConnectedAt,omitempty"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updatedAt"`
}

type RecordStore interface {
	Get(userID string) (*SessionRecord, error)
	Save(record *SessionRecord) error
	Delete(userID string) error
	List() ([]*SessionRecord, error)
}

func NewSessionRecord(userID string) *SessionRecord {
	return &SessionRecord{
		UserID:    userID,
		Status:    "UNINITIALIZED",
		UpdatedAt: time.Now(),
	}
}

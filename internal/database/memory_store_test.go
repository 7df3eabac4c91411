package database

import "testing"

func TestMemoryRecordStore(t *testing.T) {
	store := NewMemoryRecordStore()
	_ = store.Save(NewSessionRecord("u1"))
	_ = store.Save(NewSessionRecord("u2"))
	_ = store.Save(NewSessionRecord("u3"))

	record, err := store.Get("u2")
	if err != nil {
		t.Fatal("Except got user id u2, but got error")
	}
	if record.Status != "UNINITIALIZED" {
		t.Fatalf("Except status UNINITIALIZED, but got %s", record.Status)
	}

	record.Status = "CONNECTED"
	if _, err := store.Get("u2"); err != nil {
		t.Fatal("Expected stored record unaffected by caller mutation")
	}

	_ = store.Delete("u1")
	_, err = store.Get("u1")
	if err == nil {
		t.Fatal("Except not found error, but got nil")
	}

	records, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("Except 2 records, but got %d", len(records))
	}
	if records[0].UserID != "u2" || records[1].UserID != "u3" {
		t.Fatalf("Except sorted listing, but got %v, %v", records[0].UserID, records[1].UserID)
	}
}

func TestMemoryRecordStoreRejectsEmptyUserID(t *testing.T) {
	store := NewMemoryRecordStore()
	if err := store.Save(&SessionRecord{}); err == nil {
		t.Fatal("Except error for empty user id, but got nil")
	}
	if _, err := store.Get(""); err == nil {
		t.Fatal("Except error for empty user id, but got nil")
	}
}

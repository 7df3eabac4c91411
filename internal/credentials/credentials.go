// Package credentials manages the on-disk authentication material the
// transport needs per user: one directory per user id under a fixed root,
// created before connecting and wiped wholesale on logout.
package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidUserID = errors.New("user id must not be empty or contain path separators")

type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func validUserID(userID string) bool {
	if userID == "" || userID == "." || userID == ".." {
		return false
	}
	return !strings.ContainsAny(userID, `/\`)
}

// Path returns the credential directory for a user. The directory is not
// created; the transport adapter does that on connect.
func (s *Store) Path(userID string) (string, error) {
	if !validUserID(userID) {
		return "", ErrInvalidUserID
	}
	return filepath.Join(s.root, userID), nil
}

// Exists reports whether credential material is present for a user.
func (s *Store) Exists(userID string) bool {
	path, err := s.Path(userID)
	if err != nil {
		return false
	}
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}

// Delete removes a user's credential directory and everything in it.
func (s *Store) Delete(userID string) error {
	path, err := s.Path(userID)
	if err != nil {
		return err
	}
	return os.RemoveAll(path)
}

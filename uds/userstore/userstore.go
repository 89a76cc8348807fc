// Package userstore implements the User Discovery Service's in-memory,
// uid-sorted user table with full-snapshot JSON persistence.
package userstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jaem-project/jaem-server/internal/metrics"
)

const defaultDescription = "Hey there! Let's have a Jaem."

// DefaultProfilePicture is substituted whenever a profile picture is absent
// or cannot be resolved from disk.
const DefaultProfilePicture = "default.png"

// PubKeyAlgorithm identifies the signature scheme of a PubKey entry.
type PubKeyAlgorithm uint8

const (
	// PubKeyAlgorithmEd25519 is the only currently defined algorithm.
	PubKeyAlgorithmEd25519 PubKeyAlgorithm = 0
)

// PubKey is one public-key record attached to a user.
type PubKey struct {
	Algorithm    PubKeyAlgorithm `json:"algorithm"`
	SignatureKey string          `json:"signature_key"`
	ExchangeKey  string          `json:"exchange_key,omitempty"`
	RSAKey       string          `json:"rsa_key,omitempty"`
}

// User is one UserRecord. In the stored table (and the users file)
// ProfilePicture is a filesystem path or DefaultProfilePicture; the Users
// returned by GetUsers, GetEntriesByPattern and GetEntryByUID carry the
// picture file's contents instead, or DefaultProfilePicture when it cannot
// be read.
type User struct {
	UID            string   `json:"uid"`
	Username       string   `json:"username"`
	PublicKeys     []PubKey `json:"public_keys"`
	ProfilePicture string   `json:"profile_picture"`
	Description    string   `json:"description"`
}

// NewUser is the caller-supplied shape for add_entry: ProfilePicture here
// is the inline blob to persist (empty meaning "use the default").
type NewUser struct {
	UID            string
	Username       string
	PublicKeys     []PubKey
	ProfilePicture []byte
	Description    string
}

// ErrExists is returned by Add when uid is already present.
var ErrExists = fmt.Errorf("userstore: user already exists")

// ErrNotFound is returned by operations addressing a uid or key that is
// not present.
var ErrNotFound = fmt.Errorf("userstore: not found")

type document struct {
	Users []User `json:"users"`
}

// Store is the uid-sorted, mutex-guarded user table, persisted as a single
// JSON document on every mutation.
type Store struct {
	mu          sync.RWMutex
	users       []User
	usersFile   string
	pictureRoot string
}

// New loads the store from usersFile (creating an empty one if absent) and
// roots resolved profile-picture files under pictureRoot.
func New(usersFile, pictureRoot string) (*Store, error) {
	if err := os.MkdirAll(pictureRoot, 0o755); err != nil {
		return nil, fmt.Errorf("userstore: create picture directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(usersFile), 0o755); err != nil {
		return nil, fmt.Errorf("userstore: create users file directory: %w", err)
	}

	s := &Store{usersFile: usersFile, pictureRoot: pictureRoot}

	data, err := os.ReadFile(usersFile)
	if os.IsNotExist(err) {
		s.users = []User{}
		if err := s.flushLocked(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("userstore: read users file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("userstore: parse users file: %w", err)
	}
	s.users = doc.Users
	return s, nil
}

// flushLocked writes the whole in-memory table to usersFile. The caller
// must already hold mu (read or write).
func (s *Store) flushLocked() error {
	start := time.Now()
	defer func() { metrics.UDSFlushDuration.Observe(time.Since(start).Seconds()) }()

	f, err := os.Create(s.usersFile)
	if err != nil {
		return fmt.Errorf("userstore: create users file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(document{Users: s.users}); err != nil {
		return fmt.Errorf("userstore: write users file: %w", err)
	}
	return nil
}

func (s *Store) indexOfLocked(uid string) (int, bool) {
	i := sort.Search(len(s.users), func(i int) bool { return s.users[i].UID >= uid })
	if i < len(s.users) && s.users[i].UID == uid {
		return i, true
	}
	return i, false
}

func (s *Store) pictureFile(uid string) string {
	return filepath.Join(s.pictureRoot, uid+".png")
}

// resolvePicture reads the on-disk profile picture for path back into
// bytes; any read failure (including "no picture set") falls back to
// DefaultProfilePicture as literal text, matching spec.md §4.6.
func resolvePicture(path string) string {
	if path == "" || path == DefaultProfilePicture {
		return DefaultProfilePicture
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultProfilePicture
	}
	return string(data)
}

func withResolvedPicture(u User) User {
	u.ProfilePicture = resolvePicture(u.ProfilePicture)
	return u
}

// GetUsers returns the page (page, pageSize) slice of users, in uid order,
// with their profile pictures resolved to inline blobs.
func (s *Store) GetUsers(page, pageSize int) []User {
	metrics.UDSLookups.Inc()
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := page * pageSize
	if start >= len(s.users) {
		return []User{}
	}
	end := start + pageSize
	if end > len(s.users) {
		end = len(s.users)
	}

	out := make([]User, 0, end-start)
	for _, u := range s.users[start:end] {
		out = append(out, withResolvedPicture(u))
	}
	return out
}

// GetEntriesByPattern returns a paginated, case-insensitive substring match
// against username. It reports (nil, false) when the filtered result is
// empty.
func (s *Store) GetEntriesByPattern(pattern string, page, pageSize int) ([]User, bool) {
	metrics.UDSLookups.Inc()
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(pattern)
	var matched []User
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Username), needle) {
			matched = append(matched, withResolvedPicture(u))
		}
	}

	if len(matched) == 0 {
		return nil, false
	}

	start := page * pageSize
	if start >= len(matched) {
		return []User{}, true
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	result := matched[start:end]
	if len(result) == 0 {
		return nil, false
	}
	return result, true
}

// GetEntryByUID looks up a single user by uid via binary search (spec.md
// §9's redesign: the historical O(n) scan is replaced since users is kept
// sorted by uid anyway), resolving its profile picture.
func (s *Store) GetEntryByUID(uid string) (User, bool) {
	metrics.UDSLookups.Inc()
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.indexOfLocked(uid)
	if !ok {
		return User{}, false
	}
	return withResolvedPicture(s.users[i]), true
}

// Add inserts a new user at its sorted position. An empty ProfilePicture
// blob assigns DefaultProfilePicture; a non-empty blob is flushed verbatim
// to <pictureRoot>/<uid>.png and the in-memory field becomes that path. An
// empty Description gets a canned welcome string.
func (s *Store) Add(new NewUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, exists := s.indexOfLocked(new.UID)
	if exists {
		return ErrExists
	}

	u := User{
		UID:         new.UID,
		Username:    new.Username,
		PublicKeys:  new.PublicKeys,
		Description: new.Description,
	}
	if u.Description == "" {
		u.Description = defaultDescription
	}

	if len(new.ProfilePicture) == 0 {
		u.ProfilePicture = DefaultProfilePicture
	} else {
		path := s.pictureFile(new.UID)
		if err := os.WriteFile(path, new.ProfilePicture, 0o644); err != nil {
			return fmt.Errorf("userstore: write profile picture: %w", err)
		}
		u.ProfilePicture = path
	}

	s.users = append(s.users, User{})
	copy(s.users[i+1:], s.users[i:])
	s.users[i] = u

	if err := s.flushLocked(); err != nil {
		return err
	}
	metrics.UDSMutations.WithLabelValues("add").Inc()
	return nil
}

// AddPubKeys appends keys to uid's public-key list.
func (s *Store) AddPubKeys(uid string, keys []PubKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexOfLocked(uid)
	if !ok {
		return ErrNotFound
	}
	s.users[i].PublicKeys = append(s.users[i].PublicKeys, keys...)
	if err := s.flushLocked(); err != nil {
		return err
	}
	metrics.UDSMutations.WithLabelValues("add_pub_keys").Inc()
	return nil
}

// ProfileUpdate carries the optional fields a profile PATCH may overwrite.
type ProfileUpdate struct {
	Username       *string
	ProfilePicture []byte
	Description    *string
}

// UpdateProfile overwrites the fields that are non-nil and non-empty on
// uid's record, re-flushing the picture file when ProfilePicture is
// supplied.
func (s *Store) UpdateProfile(uid string, update ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexOfLocked(uid)
	if !ok {
		return ErrNotFound
	}

	if update.Username != nil && *update.Username != "" {
		s.users[i].Username = *update.Username
	}
	if update.Description != nil && *update.Description != "" {
		s.users[i].Description = *update.Description
	}
	if len(update.ProfilePicture) > 0 {
		path := s.pictureFile(uid)
		if err := os.WriteFile(path, update.ProfilePicture, 0o644); err != nil {
			return fmt.Errorf("userstore: write profile picture: %w", err)
		}
		s.users[i].ProfilePicture = path
	}

	if err := s.flushLocked(); err != nil {
		return err
	}
	metrics.UDSMutations.WithLabelValues("update_profile").Inc()
	return nil
}

// DeletePubKey removes the public key whose SignatureKey matches
// signatureKey from uid's key list. Keys are kept in insertion order, so
// the list is scanned rather than binary-searched.
func (s *Store) DeletePubKey(uid, signatureKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexOfLocked(uid)
	if !ok {
		return ErrNotFound
	}

	keys := s.users[i].PublicKeys
	j := 0
	for j < len(keys) && keys[j].SignatureKey != signatureKey {
		j++
	}
	if j >= len(keys) {
		return ErrNotFound
	}

	s.users[i].PublicKeys = append(keys[:j], keys[j+1:]...)
	if err := s.flushLocked(); err != nil {
		return err
	}
	metrics.UDSMutations.WithLabelValues("delete_pub_key").Inc()
	return nil
}

// Delete removes uid's record entirely.
func (s *Store) Delete(uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexOfLocked(uid)
	if !ok {
		return ErrNotFound
	}
	s.users = append(s.users[:i], s.users[i+1:]...)
	if err := s.flushLocked(); err != nil {
		return err
	}
	metrics.UDSMutations.WithLabelValues("delete").Inc()
	return nil
}

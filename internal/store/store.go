// Package store embeds the external document-store collaborator (spec §1,
// §6): per-user add-ons and library entries plus a users collection, keyed
// the way the collections table in spec §6 describes. Key-prefix/transaction
// shape is grounded on tomtom215-cartographus's BadgerSessionStore, the only
// pack repo embedding dgraph-io/badger as a document store.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/streamforge/gateway/internal/gwerrors"
)

const (
	userKeyPrefix     = "user:"
	userNameKeyPrefix = "user_by_name:"
	addonKeyPrefix    = "addon:"
	libraryKeyPrefix  = "library:"
)

// User is the users collection shape (spec §6).
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	Email        string    `json:"email"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Manifest is the installed add-on's manifest shape (spec §6, §4.2).
type Manifest struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Types     []string `json:"types"`
	Resources []string `json:"resources"`
}

// Addon is the addons collection shape; unique per (UserID, Manifest.ID).
type Addon struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ManifestURL string    `json:"manifestUrl"`
	Manifest    Manifest  `json:"manifest"`
	InstalledAt time.Time `json:"installedAt"`
}

// LibraryItem is the library collection shape (spec §6).
type LibraryItem struct {
	UserID  string    `json:"userId"`
	ID      string    `json:"id"`
	IMDBID  string    `json:"imdbId,omitempty"`
	Type    string    `json:"type"`
	Name    string    `json:"name"`
	Poster  string    `json:"poster"`
	Year    int       `json:"year"`
	AddedAt time.Time `json:"addedAt"`
}

var ErrAddonAlreadyInstalled = errors.New("store: addon already installed for user")

// Store is the embedded document store.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a Badger database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func marshal(v any) ([]byte, error) { return json.Marshal(v) }

// CreateUser stores a new user, keyed by id and additionally indexed by
// username for login lookups.
func (s *Store) CreateUser(u User) error {
	data, err := marshal(u)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(userKeyPrefix+u.ID), data); err != nil {
			return err
		}
		return txn.Set([]byte(userNameKeyPrefix+u.Username), []byte(u.ID))
	})
}

// GetUserByUsername looks a user up by username (used by /auth/login).
func (s *Store) GetUserByUsername(username string) (*User, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userNameKeyPrefix + username))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return gwerrors.New(gwerrors.KindNotFound, "user not found")
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(id)
}

// GetUser fetches a user by id.
func (s *Store) GetUser(id string) (*User, error) {
	var u User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return gwerrors.New(gwerrors.KindNotFound, "user not found")
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &u)
		})
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListAddons returns every add-on installed by userID.
func (s *Store) ListAddons(userID string) ([]Addon, error) {
	var out []Addon
	prefix := []byte(addonKeyPrefix + userID + ":")
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var a Addon
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &a)
			}); err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

// InstallAddon stores a, rejecting a duplicate (userID, manifest.id) pair
// (spec §6 uniqueness constraint).
func (s *Store) InstallAddon(a Addon) error {
	key := []byte(addonKeyPrefix + a.UserID + ":" + a.Manifest.ID)
	data, err := marshal(a)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrAddonAlreadyInstalled
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

// UninstallAddon removes the add-on manifestID for userID.
func (s *Store) UninstallAddon(userID, manifestID string) error {
	key := []byte(addonKeyPrefix + userID + ":" + manifestID)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return gwerrors.New(gwerrors.KindNotFound, "addon not found")
		}
		return txn.Delete(key)
	})
}

// ListLibrary returns every library entry for userID, including channels
// (spec §9 Open Question: the inclusive form is adopted).
func (s *Store) ListLibrary(userID string) ([]LibraryItem, error) {
	var out []LibraryItem
	prefix := []byte(libraryKeyPrefix + userID + ":")
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var item LibraryItem
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			}); err != nil {
				return err
			}
			out = append(out, item)
		}
		return nil
	})
	return out, err
}

// AddLibraryItem upserts one library entry.
func (s *Store) AddLibraryItem(item LibraryItem) error {
	key := []byte(libraryKeyPrefix + item.UserID + ":" + item.Type + ":" + item.ID)
	data, err := marshal(item)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// RemoveLibraryItem deletes one library entry.
func (s *Store) RemoveLibraryItem(userID, itemType, id string) error {
	key := []byte(libraryKeyPrefix + userID + ":" + itemType + ":" + id)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

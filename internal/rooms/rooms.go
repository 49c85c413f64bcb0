// Package rooms is the optional room-admission collaborator: room
// definitions loaded from JSON assets, answering whether a room is open
// to joins. Room metadata CRUD itself lives in another service; a room
// id with no definition here is admitted, because existence checking is
// that service's call to make.
package rooms

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/pixil98/go-errors"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]*$`)

// Definition is the admission-relevant slice of a room's metadata.
type Definition struct {
	Name    string `json:"name"`
	Private bool   `json:"private,omitempty"`
	Closed  bool   `json:"closed,omitempty"`
}

func (d *Definition) Validate() error {
	el := errors.NewErrorList()

	if d.Name == "" {
		el.Add(fmt.Errorf("name must be set"))
	}

	return el.Err()
}

type asset struct {
	Version    uint        `json:"version"`
	Identifier string      `json:"id"`
	Spec       *Definition `json:"spec"`
}

func (a *asset) validate() error {
	el := errors.NewErrorList()

	if a.Version == 0 {
		el.Add(fmt.Errorf("version must be set"))
	}

	if a.Identifier == "" {
		el.Add(fmt.Errorf("id must be set"))
	}

	if !identifierPattern.MatchString(a.Identifier) {
		el.Add(fmt.Errorf("id must be alphanumeric"))
	}

	if a.Spec == nil {
		el.Add(fmt.Errorf("spec must be set"))
	} else {
		el.Add(a.Spec.Validate())
	}

	return el.Err()
}

// FileStore loads room definitions from a directory of JSON assets.
type FileStore struct {
	path    string
	records map[string]*Definition

	mu sync.RWMutex
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		records: map[string]*Definition{},
	}

	err := s.load()
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clear existing records when loading
	s.records = map[string]*Definition{}

	return filepath.Walk(s.path, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		// Load all json files in the assets path
		if !info.IsDir() && filepath.Ext(path) == ".json" {
			a, err := s.loadAsset(path)
			if err != nil {
				return err
			}

			err = a.validate()
			if err != nil {
				return fmt.Errorf("validating %s: %w", filepath.Base(path), err)
			}

			// Error if the key is already in use
			_, ok := s.records[a.Identifier]
			if ok {
				return fmt.Errorf("duplicate key detected: %s", a.Identifier)
			}

			s.records[a.Identifier] = a.Spec
		}

		return nil
	})
}

func (s *FileStore) loadAsset(path string) (*asset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	// Ignoring close error - file is read-only, error is not actionable
	defer func() { _ = file.Close() }()

	jsonData, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	a := &asset{}
	err = json.Unmarshal(jsonData, a)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling asset: %w", err)
	}

	return a, nil
}

// Get returns the definition for a room id, or nil if unknown.
func (s *FileStore) Get(roomID string) *Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.records[roomID]
}

// Len returns the number of loaded definitions.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// CanJoin reports whether a room accepts joins. Unknown rooms are
// admitted; only rooms explicitly marked closed are refused.
func (s *FileStore) CanJoin(roomID string) bool {
	d := s.Get(roomID)
	if d == nil {
		return true
	}
	return !d.Closed
}

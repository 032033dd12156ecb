// Package store persists round snapshots as one JSON file per room.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	rand "math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/lox/chinesepoker/internal/chinese"
	"github.com/lox/chinesepoker/internal/fileutil"
)

const ext = ".json"

var (
	ErrNotFound      = errors.New("room not found")
	ErrInvalidRoomID = errors.New("invalid room id")
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidRoomID reports whether id can be used as a room file name.
func ValidRoomID(id string) bool {
	return roomIDPattern.MatchString(id) && !strings.Contains(id, "..")
}

// FileStore keeps each room in <Dir>/<room>.json.
type FileStore struct {
	Dir string
}

// New returns a FileStore rooted at dir
func New(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(roomID string) (string, error) {
	if !ValidRoomID(roomID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRoomID, roomID)
	}
	return filepath.Join(s.Dir, roomID+ext), nil
}

// Save writes the round's snapshot atomically.
func (s *FileStore) Save(roomID string, r *chinese.Round) error {
	path, err := s.path(roomID)
	if err != nil {
		return err
	}
	if err := fileutil.WriteJSONAtomic(path, r.Snapshot()); err != nil {
		return fmt.Errorf("save room %s: %w", roomID, err)
	}
	return nil
}

// Load restores a saved round. It returns ErrNotFound when nothing was saved.
func (s *FileStore) Load(roomID string, rng *rand.Rand, opts ...chinese.Option) (*chinese.Round, error) {
	path, err := s.path(roomID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}

	r, err := chinese.UnmarshalRound(data, rng, opts...)
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	return r, nil
}

// Delete removes a saved room. Deleting a missing room is not an error.
func (s *FileStore) Delete(roomID string) error {
	path, err := s.path(roomID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	return nil
}

// List returns the ids of all saved rooms, sorted. A missing directory holds no
// rooms.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		if id := strings.TrimSuffix(name, ext); ValidRoomID(id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store keeps one JSON document per prompt type under a root directory.
type Store struct {
	dir      string
	now      func() time.Time
	onActive func(t PromptType, version int)

	mu    sync.Mutex
	locks map[PromptType]*sync.Mutex
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithActiveHook registers a callback invoked after a write changes the active version.
func WithActiveHook(fn func(t PromptType, version int)) StoreOption {
	return func(s *Store) { s.onActive = fn }
}

// NewStore creates the root directory if needed and returns a store bound to it.
func NewStore(dir string, opts ...StoreOption) (*Store, error) {
	if dir == "" {
		return nil, errors.New("prompts: store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create prompt directory %s: %v", ErrIO, dir, err)
	}
	s := &Store{
		dir:   dir,
		now:   time.Now,
		locks: make(map[PromptType]*sync.Mutex, len(typeFilenames)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the directory holding the prompt files.
func (s *Store) Dir() string { return s.dir }

// Path returns the file backing the given type.
func (s *Store) Path(t PromptType) string {
	return filepath.Join(s.dir, t.Filename())
}

func (s *Store) lock(t PromptType) func() {
	s.mu.Lock()
	l, ok := s.locks[t]
	if !ok {
		l = &sync.Mutex{}
		s.locks[t] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// ReadSet loads every version of t. A missing file is created empty. When the
// file cannot be read or parsed an empty set is returned together with an
// error wrapping ErrIO or ErrCorruptSet.
func (s *Store) ReadSet(t PromptType) (PromptSet, error) {
	if !t.Valid() {
		return PromptSet{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	unlock := s.lock(t)
	defer unlock()
	return s.readLocked(t)
}

func (s *Store) readLocked(t PromptType) (PromptSet, error) {
	path := s.Path(t)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if werr := s.writeLocked(t, PromptSet{}); werr != nil {
			log.Error().Err(werr).Str("type", string(t)).Msg("Failed to create empty prompt file")
			return PromptSet{}, werr
		}
		log.Debug().Str("type", string(t)).Str("path", path).Msg("Created empty prompt file")
		return PromptSet{}, nil
	}
	if err != nil {
		log.Error().Err(err).Str("type", string(t)).Str("path", path).Msg("Failed to read prompt file")
		return PromptSet{}, fmt.Errorf("%w: read %s: %v", ErrIO, path, err)
	}

	var set PromptSet
	if err := json.Unmarshal(data, &set); err != nil {
		log.Error().Err(err).Str("type", string(t)).Str("path", path).Msg("Prompt file is not a valid version list")
		return PromptSet{}, fmt.Errorf("%w: %s: %v", ErrCorruptSet, path, err)
	}
	if set == nil {
		set = PromptSet{}
	}
	return set, nil
}

// writeLocked persists the set through a temp file and rename so readers never
// see a partial document.
func (s *Store) writeLocked(t PromptType, set PromptSet) error {
	if set == nil {
		set = PromptSet{}
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrIO, t, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+string(t)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrIO, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %v", ErrIO, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrIO, tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrIO, tmpName, err)
	}
	if err := os.Rename(tmpName, s.Path(t)); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrIO, s.Path(t), err)
	}
	return nil
}

// Active returns the version currently used for t. When no version is flagged
// the highest version is used. A corrupt or unreadable set is treated as empty.
func (s *Store) Active(t PromptType) (*PromptVersion, error) {
	set, err := s.ReadSet(t)
	if err != nil {
		if errors.Is(err, ErrUnknownType) {
			return nil, err
		}
		log.Warn().Err(err).Str("type", string(t)).Msg("Treating unreadable prompt set as empty")
	}

	v, fallback, ok := set.Active()
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNotFound, t)
	}
	if fallback {
		log.Warn().Str("type", string(t)).Int("version", v.Version).
			Msg("No active prompt version flagged, using latest")
	}
	return &v, nil
}

// AddVersion appends content as the new active version of t. Existing versions
// are deactivated in the same write. A corrupt set is left untouched.
func (s *Store) AddVersion(t PromptType, content, changeDescription string) (PromptVersion, error) {
	if !t.Valid() {
		return PromptVersion{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	unlock := s.lock(t)
	defer unlock()

	set, err := s.readLocked(t)
	if err != nil {
		return PromptVersion{}, fmt.Errorf("add version to %s: %w", t, err)
	}

	now := s.timestamp()
	for i := range set {
		set[i].IsActive = false
	}
	nv := PromptVersion{
		Version:           set.MaxVersion() + 1,
		Content:           content,
		ChangeDescription: changeDescription,
		CreatedAt:         now,
		LastModifiedAt:    now,
		IsActive:          true,
	}
	set = append(set, nv)

	if err := s.writeLocked(t, set); err != nil {
		log.Error().Err(err).Str("type", string(t)).Msg("Failed to save prompt version")
		return PromptVersion{}, fmt.Errorf("add version to %s: %w", t, err)
	}
	log.Info().Str("type", string(t)).Int("version", nv.Version).Msg("Added prompt version")
	s.notify(t, nv.Version)
	return nv, nil
}

// Activate marks an existing version of t as the active one.
func (s *Store) Activate(t PromptType, version int) (PromptVersion, error) {
	if !t.Valid() {
		return PromptVersion{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	unlock := s.lock(t)
	defer unlock()

	set, err := s.readLocked(t)
	if err != nil {
		return PromptVersion{}, fmt.Errorf("activate %s v%d: %w", t, version, err)
	}
	if _, ok := set.Find(version); !ok {
		return PromptVersion{}, fmt.Errorf("%w: %s v%d", ErrVersionNotFound, t, version)
	}

	var activated PromptVersion
	for i := range set {
		if set[i].Version == version {
			set[i].IsActive = true
			set[i].LastModifiedAt = s.timestamp()
			activated = set[i]
			continue
		}
		set[i].IsActive = false
	}

	if err := s.writeLocked(t, set); err != nil {
		return PromptVersion{}, fmt.Errorf("activate %s v%d: %w", t, version, err)
	}
	log.Info().Str("type", string(t)).Int("version", version).Msg("Activated prompt version")
	s.notify(t, version)
	return activated, nil
}

// Initialize creates an empty document for every type that has none yet.
func (s *Store) Initialize() error {
	for _, t := range AllTypes() {
		if _, err := os.Stat(s.Path(t)); err == nil {
			continue
		}
		if _, err := s.ReadSet(t); err != nil {
			return err
		}
	}
	return nil
}

// Seed loads <dir>/<type>.md as version 1 for every type whose set is still
// empty. It returns the number of versions created.
func (s *Store) Seed(dir string) (int, error) {
	created := 0
	for _, t := range AllTypes() {
		set, err := s.ReadSet(t)
		if err != nil {
			return created, err
		}
		if len(set) > 0 {
			continue
		}
		path := filepath.Join(dir, string(t)+".md")
		content, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("type", string(t)).Str("path", path).Msg("No seed file for prompt type")
			continue
		}
		if err != nil {
			return created, fmt.Errorf("%w: read seed %s: %v", ErrIO, path, err)
		}
		if _, err := s.AddVersion(t, string(content), "Initial version"); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// Report publishes the current active version of every type through the
// active hook. Called once at startup.
func (s *Store) Report() {
	for _, t := range AllTypes() {
		set, err := s.ReadSet(t)
		if err != nil {
			continue
		}
		if v, _, ok := set.Active(); ok {
			s.notify(t, v.Version)
		} else {
			s.notify(t, 0)
		}
	}
}

func (s *Store) notify(t PromptType, version int) {
	if s.onActive != nil {
		s.onActive(t, version)
	}
}

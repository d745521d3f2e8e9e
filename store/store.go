// Package store holds the canonical attendance state and writes every mutation
// through a db.Gateway.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"attendance-tracker-go/calculator"
	"attendance-tracker-go/db"
	"attendance-tracker-go/models"
	"github.com/google/uuid"
)

const classIDPrefix = "class_"

// Options tune a Store. The zero value uses models.DefaultGoal and no write retries.
type Options struct {
	Goal    *int // Starting goal; nil means models.DefaultGoal
	Retries int  // Extra Set attempts after a failed write
}

// State is a read-only copy of the store's collections
type State struct {
	Classes    []models.ClassRecord `json:"classes"`
	Attendance models.AttendanceLog `json:"attendance"`
	Goal       int                  `json:"goal"`
}

// Summary derives the rate and goal projection for this state.
func (st State) Summary() models.DerivedSummary {
	return calculator.Calculate(st.Classes, st.Attendance, st.Goal)
}

// Store is the single authoritative holder of classes, attendance and goal.
// Mutations are serialized; the in-memory change is applied before the write
// is issued and is never rolled back. Gateway writes run outside mu.
type Store struct {
	mu         sync.RWMutex
	persistMu  sync.Mutex
	written    map[string]uint64 // Last version written per key, guarded by persistMu
	gateway    db.Gateway
	retries    int
	classes    []models.ClassRecord
	attendance models.AttendanceLog
	goal       int

	version       uint64
	cachedVersion uint64
	cached        *models.DerivedSummary

	newID func() string
}

// New creates an empty Store. Call LoadAll to pull persisted state.
func New(gateway db.Gateway, opts Options) (*Store, error) {
	goal := models.DefaultGoal
	if opts.Goal != nil {
		if err := models.ValidateGoal(*opts.Goal); err != nil {
			return nil, err
		}
		goal = *opts.Goal
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Store{
		gateway:    gateway,
		retries:    opts.Retries,
		written:    map[string]uint64{},
		classes:    []models.ClassRecord{},
		attendance: models.AttendanceLog{},
		goal:       goal,
		newID:      func() string { return classIDPrefix + uuid.NewString() },
	}, nil
}

// LoadAll replaces the in-memory collections with what the gateway holds.
// Missing keys load as empty. A key that cannot be read or decoded loads as
// empty too, and its error is returned (joined) so the caller can report it.
func (s *Store) LoadAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	classes, err := s.loadClasses(ctx)
	if err != nil {
		log.Printf("Falling back to empty classes: %v", err)
		errs = append(errs, err)
		classes = []models.ClassRecord{}
	}

	attendance, err := s.loadAttendance(ctx)
	if err != nil {
		log.Printf("Falling back to empty attendance: %v", err)
		errs = append(errs, err)
		attendance = models.AttendanceLog{}
	}

	known := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		known[c.ID] = struct{}{}
	}
	for id, status := range attendance {
		if _, ok := known[id]; !ok {
			log.Printf("Dropping attendance for unknown class %s", id)
			delete(attendance, id)
			continue
		}
		if !status.Valid() {
			log.Printf("Dropping invalid status %q for class %s", status, id)
			delete(attendance, id)
		}
	}

	s.classes = classes
	s.attendance = attendance
	s.bump()
	log.Printf("Loaded %d classes and %d attendance entries", len(classes), len(attendance))
	return errors.Join(errs...)
}

func (s *Store) loadClasses(ctx context.Context) ([]models.ClassRecord, error) {
	raw, ok, err := s.gateway.Get(ctx, db.ClassesKey)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", models.ErrPersistenceFailure, db.ClassesKey, err)
	}
	if !ok {
		return []models.ClassRecord{}, nil
	}
	var classes []models.ClassRecord
	if err := json.Unmarshal(raw, &classes); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrCorruptState, db.ClassesKey, err)
	}
	if classes == nil {
		classes = []models.ClassRecord{}
	}
	seen := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: %s: class without id", models.ErrCorruptState, db.ClassesKey)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate id %s", models.ErrCorruptState, db.ClassesKey, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return classes, nil
}

func (s *Store) loadAttendance(ctx context.Context) (models.AttendanceLog, error) {
	raw, ok, err := s.gateway.Get(ctx, db.AttendanceKey)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", models.ErrPersistenceFailure, db.AttendanceKey, err)
	}
	if !ok {
		return models.AttendanceLog{}, nil
	}
	var attendance models.AttendanceLog
	if err := json.Unmarshal(raw, &attendance); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrCorruptState, db.AttendanceKey, err)
	}
	if attendance == nil {
		attendance = models.AttendanceLog{}
	}
	return attendance, nil
}

// AddClass validates name and time, appends a new class with a fresh id and
// persists the class list. The returned record is valid even when the error
// wraps models.ErrPersistenceFailure.
func (s *Store) AddClass(ctx context.Context, name, classTime string) (models.ClassRecord, error) {
	in, err := models.NewClassInput{Name: name, Time: classTime}.Normalize()
	if err != nil {
		return models.ClassRecord{}, err
	}

	s.mu.Lock()
	record := models.ClassRecord{ID: s.uniqueID(), Name: in.Name, Time: in.Time}
	s.classes = append(s.classes, record)
	s.bump()
	pending := s.encode(db.ClassesKey)
	s.mu.Unlock()
	log.Printf("Added class: %s (%s)", record.Name, record.ID)

	return record, s.persist(ctx, pending)
}

// uniqueID never returns an id already present in the class list.
func (s *Store) uniqueID() string {
	for {
		id := s.newID()
		if s.indexOf(id) < 0 {
			return id
		}
	}
}

// DeleteClass removes the class and its attendance entry, then persists both.
func (s *Store) DeleteClass(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	s.classes = append(s.classes[:i:i], s.classes[i+1:]...)
	delete(s.attendance, id)
	s.bump()
	classes, attendance := s.encode(db.ClassesKey), s.encode(db.AttendanceKey)
	s.mu.Unlock()
	log.Printf("Deleted class %s", id)

	return s.persist(ctx, classes, attendance)
}

// MarkAttendance records status for the class, overwriting any previous entry.
func (s *Store) MarkAttendance(ctx context.Context, id string, status models.AttendanceStatus) error {
	if !status.Valid() {
		return models.ValidationErrors{{Field: "status", Message: fmt.Sprintf("must be %q or %q", models.StatusAttended, models.StatusMissed)}}
	}

	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	s.attendance[id] = status
	s.bump()
	pending := s.encode(db.AttendanceKey)
	s.mu.Unlock()
	log.Printf("Marked class %s as %s", id, status)

	return s.persist(ctx, pending)
}

// SetGoal changes the goal percentage. The goal is session-local and never persisted.
func (s *Store) SetGoal(percent int) error {
	if err := models.ValidateGoal(percent); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goal = percent
	s.bump()
	return nil
}

// Snapshot returns copies of the current collections.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Classes:    append([]models.ClassRecord{}, s.classes...),
		Attendance: s.attendance.Clone(),
		Goal:       s.goal,
	}
}

// Classes returns a copy of the ordered class list.
func (s *Store) Classes() []models.ClassRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ClassRecord{}, s.classes...)
}

// Goal returns the current goal percentage.
func (s *Store) Goal() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goal
}

// StatusOf returns the class's status, StatusUnmarked if none has been recorded.
func (s *Store) StatusOf(id string) (models.AttendanceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.indexOf(id) < 0 {
		return models.StatusUnmarked, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	return s.attendance[id], nil
}

// Summary returns the derived figures for the current state, recomputing only
// after a mutation.
func (s *Store) Summary() models.DerivedSummary {
	s.mu.RLock()
	if s.cached != nil && s.cachedVersion == s.version {
		out := *s.cached
		s.mu.RUnlock()
		return out
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil || s.cachedVersion != s.version {
		summary := calculator.Calculate(s.classes, s.attendance, s.goal)
		s.cached = &summary
		s.cachedVersion = s.version
	}
	return *s.cached
}

func (s *Store) indexOf(id string) int {
	for i, c := range s.classes {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// bump invalidates the cached summary. Callers hold the write lock.
func (s *Store) bump() {
	s.version++
}

// pendingWrite is a serialized collection waiting to be handed to the gateway.
type pendingWrite struct {
	key     string
	raw     []byte
	version uint64
	err     error
}

// encode serializes the collection behind key. Callers hold the write lock.
func (s *Store) encode(key string) pendingWrite {
	w := pendingWrite{key: key, version: s.version}
	var payload any
	switch key {
	case db.ClassesKey:
		payload = s.classes
	case db.AttendanceKey:
		payload = s.attendance
	default:
		w.err = fmt.Errorf("unknown key %q", key)
		return w
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		w.err = fmt.Errorf("%w: encoding %s: %v", models.ErrPersistenceFailure, key, err)
		return w
	}
	w.raw = raw
	return w
}

// persist writes the encoded collections, retrying each up to s.retries extra
// times. It must be called without s.mu held so readers never wait on the
// gateway. Writes are serialized by persistMu; a payload older than one
// already written for the same key is skipped.
func (s *Store) persist(ctx context.Context, writes ...pendingWrite) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	var errs []error
	for _, w := range writes {
		if w.err != nil {
			errs = append(errs, w.err)
			continue
		}
		if w.version <= s.written[w.key] {
			continue
		}
		if err := s.write(ctx, w); err != nil {
			errs = append(errs, err)
			continue
		}
		s.written[w.key] = w.version
	}
	return errors.Join(errs...)
}

func (s *Store) write(ctx context.Context, w pendingWrite) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.gateway.Set(ctx, w.key, w.raw)
		if err == nil {
			return nil
		}
		if attempt >= s.retries || ctx.Err() != nil {
			break
		}
		log.Printf("Retrying write of %s (attempt %d of %d): %v", w.key, attempt+1, s.retries, err)
	}
	log.Printf("Warning: %s not persisted, in-memory state kept: %v", w.key, err)
	return fmt.Errorf("%w: %s: %v", models.ErrPersistenceFailure, w.key, err)
}

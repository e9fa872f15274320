package store

import (
	"sync"

	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/pkg/models"
)

// Store is the single owner of export record state.
// It is thread-safe and supports pub/sub for real-time updates.
// All reads return copies; no caller holds a mutable record.
type Store struct {
	mu         sync.RWMutex
	entries    []*Entry       // Insertion order
	index      map[string]int // id -> position in entries
	generation uint64
	modals     map[string]struct{}

	subscribers map[chan Update]struct{}
	pending     []Update // Committed but not yet seen by observers

	// notifyMu serializes observer dispatch.
	notifyMu  sync.Mutex
	observers map[int]func(Update)
	nextObsID int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		index:       make(map[string]int),
		modals:      make(map[string]struct{}),
		subscribers: make(map[chan Update]struct{}),
		observers:   make(map[int]func(Update)),
	}
}

// Replace swaps the full record set, e.g. on bootstrap or manual refresh.
// Open modals are discarded and the generation counter advances.
func (s *Store) Replace(records []models.ExportRecord) error {
	entries := make([]*Entry, 0, len(records))
	index := make(map[string]int, len(records))
	for _, r := range records {
		if r.ID == "" {
			return errors.New(errors.ErrCodeInvalidInput, "export record without id")
		}
		if _, dup := index[r.ID]; dup {
			return errors.DuplicateRecord(r.ID)
		}
		index[r.ID] = len(entries)
		entries = append(entries, &Entry{ExportRecord: r.Clone()})
	}

	s.mu.Lock()
	s.entries = entries
	s.index = index
	s.modals = make(map[string]struct{})
	s.generation++
	u := Update{Type: UpdateReplaced, Generation: s.generation}
	s.commit(u)
	return nil
}

// Generation returns the number of Replace calls so far.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns a copy of one record.
func (s *Store) Get(id string) (models.ExportRecord, error) {
	e, err := s.Entry(id)
	if err != nil {
		return models.ExportRecord{}, err
	}
	return e.ExportRecord, nil
}

// Entry returns a copy of one record with its control state.
func (s *Store) Entry(id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Entry{}, errors.RecordNotFound(id)
	}
	return s.entries[i].clone(), nil
}

// Entries returns copies of all entries in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		result = append(result, e.clone())
	}
	return result
}

// List returns copies of all records in insertion order.
func (s *Store) List() []models.ExportRecord {
	return s.filter(func(models.ExportRecord) bool { return true })
}

// Mine returns the records owned by the current user.
func (s *Store) Mine() []models.ExportRecord {
	return s.filter(func(r models.ExportRecord) bool { return r.MyExport })
}

// Others returns the records not owned by the current user.
func (s *Store) Others() []models.ExportRecord {
	return s.filter(func(r models.ExportRecord) bool { return !r.MyExport })
}

// Selected returns the records added to the bulk selection, in insertion order.
func (s *Store) Selected() []models.ExportRecord {
	return s.filter(func(r models.ExportRecord) bool { return r.AddedToBulk })
}

// AnySelected reports whether at least one record is in the bulk selection.
func (s *Store) AnySelected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.AddedToBulk {
			return true
		}
	}
	return false
}

func (s *Store) filter(keep func(models.ExportRecord) bool) []models.ExportRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.ExportRecord, 0, len(s.entries))
	for _, e := range s.entries {
		if keep(e.ExportRecord) {
			result = append(result, e.ExportRecord.Clone())
		}
	}
	return result
}

// SetTaskStatus replaces the task status of a record. The record must carry an emailed export.
func (s *Store) SetTaskStatus(id string, status *models.TaskStatus) error {
	status = status.Clone()
	status.Normalize()
	return s.mutate(id, UpdateTaskStatus, func(e *Entry) (bool, error) {
		if e.EmailedExport == nil {
			return false, errors.NoTask(id)
		}
		e.EmailedExport.TaskStatus = status
		return true, nil
	})
}

// SetTaskStatusAt is SetTaskStatus guarded by a generation: it reports false
// and writes nothing when the store was replaced since gen was read.
func (s *Store) SetTaskStatusAt(gen uint64, id string, status *models.TaskStatus) (bool, error) {
	status = status.Clone()
	status.Normalize()
	stale := false
	err := s.mutate(id, UpdateTaskStatus, func(e *Entry) (bool, error) {
		if s.generation != gen {
			stale = true
			return false, nil
		}
		if e.EmailedExport == nil {
			return false, errors.NoTask(id)
		}
		e.EmailedExport.TaskStatus = status
		return true, nil
	})
	if stale {
		return false, nil
	}
	return err == nil, err
}

// SetUpdatingData flags whether a regeneration request is outstanding.
func (s *Store) SetUpdatingData(id string, updating bool) error {
	return s.mutate(id, UpdateUpdatingData, func(e *Entry) (bool, error) {
		if e.EmailedExport == nil {
			return false, errors.NoTask(id)
		}
		changed := e.EmailedExport.UpdatingData != updating
		e.EmailedExport.UpdatingData = updating
		return changed, nil
	})
}

// SetAutoRebuild records the server-confirmed auto-rebuild flag.
func (s *Store) SetAutoRebuild(id string, enabled bool) error {
	return s.mutate(id, UpdateAutoRebuild, func(e *Entry) (bool, error) {
		changed := e.IsAutoRebuildEnabled != enabled
		e.IsAutoRebuildEnabled = enabled
		return changed, nil
	})
}

// SetAddedToBulk sets the bulk selection flag. Only real changes are published.
func (s *Store) SetAddedToBulk(id string, selected bool) error {
	return s.mutate(id, UpdateSelection, func(e *Entry) (bool, error) {
		changed := e.AddedToBulk != selected
		e.AddedToBulk = selected
		return changed, nil
	})
}

// SetAllAddedToBulk sets every record's bulk flag and returns how many changed.
// A single selection update listing the changed ids is published.
func (s *Store) SetAllAddedToBulk(selected bool) int {
	s.mu.Lock()
	var ids []string
	for _, e := range s.entries {
		if e.AddedToBulk != selected {
			e.AddedToBulk = selected
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		s.mu.Unlock()
		return 0
	}
	s.commit(Update{Type: UpdateSelection, Generation: s.generation, RecordIDs: ids})
	return len(ids)
}

// BeginToggle marks the toggle control busy. It returns false when it already was.
func (s *Store) BeginToggle(id string) (bool, error) {
	began := false
	err := s.mutate(id, UpdateToggleBusy, func(e *Entry) (bool, error) {
		if e.ToggleBusy {
			return false, nil
		}
		e.ToggleBusy = true
		began = true
		return true, nil
	})
	return began, err
}

// SetToggleBusy enables or disables the toggle control.
func (s *Store) SetToggleBusy(id string, busy bool) error {
	return s.mutate(id, UpdateToggleBusy, func(e *Entry) (bool, error) {
		changed := e.ToggleBusy != busy
		e.ToggleBusy = busy
		return changed, nil
	})
}

// SetLastError records the last action failure for a record. "" clears it.
func (s *Store) SetLastError(id, msg string) error {
	return s.mutate(id, UpdateLastError, func(e *Entry) (bool, error) {
		changed := e.LastError != msg
		e.LastError = msg
		return changed, nil
	})
}

// OpenModal marks a dialog as shown.
func (s *Store) OpenModal(key string) {
	s.setModal(key, true)
}

// CloseModal dismisses a dialog. Closing a closed dialog is a no-op.
func (s *Store) CloseModal(key string) {
	s.setModal(key, false)
}

// IsModalOpen reports whether a dialog is shown.
func (s *Store) IsModalOpen(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.modals[key]
	return ok
}

func (s *Store) setModal(key string, open bool) {
	s.mu.Lock()
	_, isOpen := s.modals[key]
	if isOpen == open {
		s.mu.Unlock()
		return
	}
	if open {
		s.modals[key] = struct{}{}
	} else {
		delete(s.modals, key)
	}
	s.commit(Update{Type: UpdateModal, Generation: s.generation, Modal: key, ModalOpen: open})
}

// mutate applies fn to one entry under the write lock and publishes an update
// when fn reports a change.
func (s *Store) mutate(id string, typ UpdateType, fn func(*Entry) (bool, error)) error {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return errors.RecordNotFound(id)
	}
	e := s.entries[i]
	changed, err := fn(e)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	snap := e.clone()
	s.commit(Update{Type: typ, Generation: s.generation, RecordID: id, Entry: &snap})
	return nil
}

// commit must be called with s.mu held for writing; it releases it.
// Channel subscribers get a non-blocking send while the lock is held.
// Observers run after the lock is released, in mutation order.
func (s *Store) commit(u Update) {
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			// Non-blocking send to prevent slow subscribers from stalling writers
		}
	}
	s.pending = append(s.pending, u)
	s.mu.Unlock()
	s.dispatch()
}

// dispatch drains pending updates to observers. Lock order is notifyMu then mu,
// and mu is never held while an observer runs.
func (s *Store) dispatch() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		u := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		for _, fn := range s.observerList() {
			fn(u)
		}
	}
}

func (s *Store) observerList() []func(Update) {
	list := make([]func(Update), 0, len(s.observers))
	for i := 0; i < s.nextObsID; i++ {
		if fn, ok := s.observers[i]; ok {
			list = append(list, fn)
		}
	}
	return list
}

// Subscribe creates a new subscription channel for store updates.
func (s *Store) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, 100) // Buffered
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

// Observe registers fn to run synchronously after every committed update.
// Observers may read the store but must not mutate it.
func (s *Store) Observe(fn func(Update)) (cancel func()) {
	s.notifyMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.notifyMu.Unlock()

	return func() {
		s.notifyMu.Lock()
		delete(s.observers, id)
		s.notifyMu.Unlock()
	}
}

func (e *Entry) clone() Entry {
	c := *e
	c.ExportRecord = e.ExportRecord.Clone()
	return c
}

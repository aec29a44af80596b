// Package store keeps the planner's events and tasks in memory and mirrors
// every change to a kv.Store.
//
// Each record lives under its own key (event:<id>, task:<id>) and both
// collections draw IDs from one persisted counter. A change is applied to
// memory only after the backing write succeeded.
package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/sirupsen/logrus"

	"dayplan/planner/calendar"
	"dayplan/planner/kv"
	"dayplan/planner/model"
	"dayplan/planner/query"
)

var (
	ErrNotFound    = errors.New("store: record not found")
	ErrWriteFailed = errors.New("store: write failed")
	ErrReadFailed  = errors.New("store: read failed")

	// ErrIDsExhausted comes wrapped in ErrWriteFailed once every ID is used.
	ErrIDsExhausted = errors.New("store: id space exhausted")
)

type Options struct {
	// Logger receives corrupt-record warnings. Nil discards them.
	Logger logrus.FieldLogger
}

// LoadReport summarises what Open found.
type LoadReport struct {
	Events  int
	Tasks   int
	Corrupt int
	NextID  uint32
}

type Stats struct {
	Events  int
	Tasks   int
	Pending int
	NextID  uint32
}

type Store struct {
	kv  kv.Store
	log logrus.FieldLogger

	// Both slices are kept sorted by ID.
	events []model.Event
	tasks  []model.Task
	nextID uint32
}

// Open loads every record from s. Unreadable records are skipped and counted;
// only a failed listing is fatal.
func Open(ctx context.Context, s kv.Store, opts Options) (*Store, LoadReport, error) {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	st := &Store{kv: s, log: log.WithField("component", "store")}

	var rep LoadReport
	var maxID uint32

	eventKeys, err := s.List(ctx, eventPrefix)
	if err != nil {
		return nil, rep, fmt.Errorf("%w: list events: %w", ErrReadFailed, err)
	}
	for _, k := range eventKeys {
		e, err := st.loadEvent(ctx, k)
		if err != nil {
			rep.Corrupt++
			st.log.WithError(err).WithField("key", k).Warn("skipping corrupt record")
			continue
		}
		st.events = append(st.events, e)
		maxID = max(maxID, e.ID)
	}

	taskKeys, err := s.List(ctx, taskPrefix)
	if err != nil {
		return nil, rep, fmt.Errorf("%w: list tasks: %w", ErrReadFailed, err)
	}
	for _, k := range taskKeys {
		t, err := st.loadTask(ctx, k)
		if err != nil {
			rep.Corrupt++
			st.log.WithError(err).WithField("key", k).Warn("skipping corrupt record")
			continue
		}
		st.tasks = append(st.tasks, t)
		maxID = max(maxID, t.ID)
	}

	// Keys list lexically; memory order is by ID.
	slices.SortFunc(st.events, func(a, b model.Event) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(st.tasks, func(a, b model.Task) int { return cmp.Compare(a.ID, b.ID) })

	counter := st.loadCounter(ctx)
	derived := maxID
	if derived < math.MaxUint32 {
		derived++
	}
	st.nextID = max(counter, derived, 1)
	if counter != st.nextID && counter != 0 {
		st.log.WithField("counter", counter).WithField("next_id", st.nextID).Warn("id counter behind records, advancing")
	}

	rep.Events = len(st.events)
	rep.Tasks = len(st.tasks)
	rep.NextID = st.nextID
	return st, rep, nil
}

func (s *Store) loadEvent(ctx context.Context, key string) (model.Event, error) {
	id, err := parseKeyID(key, eventPrefix)
	if err != nil {
		return model.Event{}, err
	}
	b, err := s.kv.Get(ctx, key)
	if err != nil {
		return model.Event{}, err
	}
	e, err := decodeEvent(b)
	if err != nil {
		return model.Event{}, err
	}
	if e.ID != id {
		return model.Event{}, fmt.Errorf("body id %d under key %q", e.ID, key)
	}
	return e, nil
}

func (s *Store) loadTask(ctx context.Context, key string) (model.Task, error) {
	id, err := parseKeyID(key, taskPrefix)
	if err != nil {
		return model.Task{}, err
	}
	b, err := s.kv.Get(ctx, key)
	if err != nil {
		return model.Task{}, err
	}
	t, err := decodeTask(b)
	if err != nil {
		return model.Task{}, err
	}
	if t.ID != id {
		return model.Task{}, fmt.Errorf("body id %d under key %q", t.ID, key)
	}
	return t, nil
}

// loadCounter returns the persisted next ID, or 0 when missing or unreadable.
func (s *Store) loadCounter(ctx context.Context) uint32 {
	b, err := s.kv.Get(ctx, counterKey)
	if errors.Is(err, kv.ErrNotFound) {
		return 0
	}
	if err != nil {
		s.log.WithError(err).Warn("id counter unreadable, re-deriving")
		return 0
	}
	n, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		s.log.WithError(err).WithField("value", string(b)).Warn("id counter corrupt, re-deriving")
		return 0
	}
	return uint32(n)
}

func (s *Store) put(ctx context.Context, key string, b []byte) error {
	if err := s.kv.Put(ctx, key, b); err != nil {
		return fmt.Errorf("%w: put %q: %w", ErrWriteFailed, key, err)
	}
	return nil
}

// reserveID persists counter=id+1 before the record goes out, so an ID is
// never handed out twice even if the record write fails. MaxUint32 is never
// issued; it marks the counter as exhausted.
func (s *Store) reserveID(ctx context.Context) (uint32, error) {
	id := s.nextID
	if id == math.MaxUint32 {
		return 0, fmt.Errorf("%w: %w", ErrWriteFailed, ErrIDsExhausted)
	}
	if err := s.put(ctx, counterKey, []byte(strconv.FormatUint(uint64(id)+1, 10))); err != nil {
		return 0, err
	}
	s.nextID = id + 1
	return id, nil
}

func (s *Store) remove(ctx context.Context, key string) error {
	err := s.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("%w: delete %q: %w", ErrWriteFailed, key, err)
	}
	return nil
}

func (s *Store) eventIndex(id uint32) int {
	i, ok := slices.BinarySearchFunc(s.events, id, func(e model.Event, id uint32) int { return cmp.Compare(e.ID, id) })
	if !ok {
		return -1
	}
	return i
}

func (s *Store) taskIndex(id uint32) int {
	i, ok := slices.BinarySearchFunc(s.tasks, id, func(t model.Task, id uint32) int { return cmp.Compare(t.ID, id) })
	if !ok {
		return -1
	}
	return i
}

// CreateEvent stores e under a fresh ID; e.ID is ignored.
func (s *Store) CreateEvent(ctx context.Context, e model.Event) (uint32, error) {
	if err := model.ValidateEvent(e); err != nil {
		return 0, err
	}
	id, err := s.reserveID(ctx)
	if err != nil {
		return 0, err
	}
	e.ID = id
	b, err := encodeEvent(e)
	if err != nil {
		return 0, fmt.Errorf("%w: encode event: %w", ErrWriteFailed, err)
	}
	if err := s.put(ctx, eventKey(id), b); err != nil {
		return 0, err
	}
	s.events = append(s.events, e)
	return id, nil
}

func (s *Store) UpdateEvent(ctx context.Context, id uint32, e model.Event) error {
	i := s.eventIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: event %d", ErrNotFound, id)
	}
	e.ID = id
	if err := model.ValidateEvent(e); err != nil {
		return err
	}
	b, err := encodeEvent(e)
	if err != nil {
		return fmt.Errorf("%w: encode event: %w", ErrWriteFailed, err)
	}
	if err := s.put(ctx, eventKey(id), b); err != nil {
		return err
	}
	s.events[i] = e
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id uint32) error {
	i := s.eventIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: event %d", ErrNotFound, id)
	}
	if err := s.remove(ctx, eventKey(id)); err != nil {
		return err
	}
	s.events = slices.Delete(s.events, i, i+1)
	return nil
}

// Events returns a copy ordered by ID.
func (s *Store) Events() []model.Event { return slices.Clone(s.events) }

func (s *Store) Event(id uint32) (model.Event, bool) {
	i := s.eventIndex(id)
	if i < 0 {
		return model.Event{}, false
	}
	return s.events[i], true
}

func (s *Store) CreateTask(ctx context.Context, t model.Task) (uint32, error) {
	if err := model.ValidateTask(t); err != nil {
		return 0, err
	}
	id, err := s.reserveID(ctx)
	if err != nil {
		return 0, err
	}
	t.ID = id
	b, err := encodeTask(t)
	if err != nil {
		return 0, fmt.Errorf("%w: encode task: %w", ErrWriteFailed, err)
	}
	if err := s.put(ctx, taskKey(id), b); err != nil {
		return 0, err
	}
	s.tasks = append(s.tasks, t)
	return id, nil
}

func (s *Store) UpdateTask(ctx context.Context, id uint32, t model.Task) error {
	i := s.taskIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: task %d", ErrNotFound, id)
	}
	t.ID = id
	if err := model.ValidateTask(t); err != nil {
		return err
	}
	b, err := encodeTask(t)
	if err != nil {
		return fmt.Errorf("%w: encode task: %w", ErrWriteFailed, err)
	}
	if err := s.put(ctx, taskKey(id), b); err != nil {
		return err
	}
	s.tasks[i] = t
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id uint32) error {
	i := s.taskIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: task %d", ErrNotFound, id)
	}
	if err := s.remove(ctx, taskKey(id)); err != nil {
		return err
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)
	return nil
}

func (s *Store) Tasks() []model.Task { return slices.Clone(s.tasks) }

func (s *Store) Task(id uint32) (model.Task, bool) {
	i := s.taskIndex(id)
	if i < 0 {
		return model.Task{}, false
	}
	return s.tasks[i], true
}

func (s *Store) ToggleTask(ctx context.Context, id uint32) error {
	t, ok := s.Task(id)
	if !ok {
		return fmt.Errorf("%w: task %d", ErrNotFound, id)
	}
	t.Done = !t.Done
	return s.UpdateTask(ctx, id, t)
}

func (s *Store) CycleTaskPriority(ctx context.Context, id uint32) error {
	t, ok := s.Task(id)
	if !ok {
		return fmt.Errorf("%w: task %d", ErrNotFound, id)
	}
	t.Priority = t.Priority.Next()
	return s.UpdateTask(ctx, id, t)
}

func (s *Store) EventsOn(d calendar.Date) []model.Event { return query.EventsOn(s.events, d) }

func (s *Store) CountOn(d calendar.Date) int { return query.CountOn(s.events, d) }

func (s *Store) MonthHasEvents(year, month int) query.DaySet {
	return query.MonthHasEvents(s.events, year, month)
}

func (s *Store) SortedTasks() []model.Task { return query.SortedTasks(s.tasks) }

func (s *Store) PendingTasks() int { return query.PendingTasks(s.tasks) }

func (s *Store) Stats() Stats {
	return Stats{
		Events:  len(s.events),
		Tasks:   len(s.tasks),
		Pending: query.PendingTasks(s.tasks),
		NextID:  s.nextID,
	}
}

package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"dayplan/planner/calendar"
	"dayplan/planner/kv"
	"dayplan/planner/model"
)

var leapDay = calendar.MustNew(2024, 2, 29)

func openStore(t *testing.T, s kv.Store) *Store {
	t.Helper()
	st, _, err := Open(context.Background(), s, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st
}

func TestCreateAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	st := openStore(t, mem)

	var last uint32
	seen := map[uint32]bool{}
	for i := 0; i < 10; i++ {
		var id uint32
		var err error
		if i%2 == 0 {
			id, err = st.CreateEvent(ctx, model.Event{Date: leapDay, Title: "e"})
		} else {
			id, err = st.CreateTask(ctx, model.Task{Title: "t"})
		}
		if err != nil {
			t.Fatalf("create #%d: %v", i, err)
		}
		if id <= last || seen[id] {
			t.Fatalf("id %d after %d not strictly increasing", id, last)
		}
		seen[id] = true
		last = id
		if i == 4 {
			if err := st.DeleteEvent(ctx, id); err != nil {
				t.Fatalf("DeleteEvent: %v", err)
			}
		}
	}
	if last != 10 {
		t.Fatalf("last id=%d, want 10", last)
	}

	reopened := openStore(t, mem)
	id, err := reopened.CreateTask(ctx, model.Task{Title: "after reopen"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if id != 11 {
		t.Fatalf("id after reopen=%d, want 11", id)
	}
}

func TestDeletedIDsNotReused(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	st := openStore(t, mem)
	id, _ := st.CreateTask(ctx, model.Task{Title: "gone"})
	_ = st.DeleteTask(ctx, id)

	reopened := openStore(t, mem)
	id2, _ := reopened.CreateTask(ctx, model.Task{Title: "next"})
	if id2 == id {
		t.Fatalf("id %d reused after delete and reopen", id)
	}
}

func TestEventRoundTripThroughReopen(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	st := openStore(t, mem)
	in := model.Event{Date: leapDay, Title: "Standup", Time: model.At(9, 15), Priority: model.High}
	id, err := st.CreateEvent(ctx, in)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	in.ID = id

	reopened := openStore(t, mem)
	got, ok := reopened.Event(id)
	if !ok || got != in {
		t.Fatalf("reloaded=%+v, want %+v", got, in)
	}

	got.Title = "Standup (moved)"
	got.Time = model.Clock{}
	if err := reopened.UpdateEvent(ctx, id, got); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	again := openStore(t, mem)
	if e, _ := again.Event(id); e != got {
		t.Fatalf("after update reload=%+v, want %+v", e, got)
	}
}

func TestTaskRoundTripWithDue(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	st := openStore(t, mem)
	id, _ := st.CreateTask(ctx, model.Task{Title: "Taxes", Priority: model.High, Due: calendar.MustNew(2025, 4, 15)})
	if err := st.ToggleTask(ctx, id); err != nil {
		t.Fatalf("ToggleTask: %v", err)
	}
	got, _ := openStore(t, mem).Task(id)
	want := model.Task{ID: id, Title: "Taxes", Priority: model.High, Done: true, Due: calendar.MustNew(2025, 4, 15)}
	if got != want {
		t.Fatalf("reloaded=%+v, want %+v", got, want)
	}
}

func TestCyclePriority(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, kv.NewMemory())
	id, _ := st.CreateTask(ctx, model.Task{Title: "x", Priority: model.Low})
	want := []model.Priority{model.Normal, model.High, model.Low}
	for i, w := range want {
		if err := st.CycleTaskPriority(ctx, id); err != nil {
			t.Fatalf("CycleTaskPriority: %v", err)
		}
		if got, _ := st.Task(id); got.Priority != w {
			t.Fatalf("cycle %d: priority=%v, want %v", i, got.Priority, w)
		}
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, kv.NewMemory())
	checks := []error{
		st.UpdateEvent(ctx, 42, model.Event{Date: leapDay, Title: "x"}),
		st.DeleteEvent(ctx, 42),
		st.UpdateTask(ctx, 42, model.Task{Title: "x"}),
		st.DeleteTask(ctx, 42),
		st.ToggleTask(ctx, 42),
		st.CycleTaskPriority(ctx, 42),
	}
	for i, err := range checks {
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("check %d: err=%v, want ErrNotFound", i, err)
		}
	}
}

func TestInvalidRejectedWithoutWrites(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	st := openStore(t, mem)
	if _, err := st.CreateEvent(ctx, model.Event{Date: leapDay, Title: " "}); !errors.Is(err, model.ErrInvalid) {
		t.Fatalf("err=%v, want model.ErrInvalid", err)
	}
	if mem.Len() != 0 {
		t.Fatalf("invalid create wrote %d keys", mem.Len())
	}
}

func TestCounterWriteFailureLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	st := openStore(t, mem)
	mem.FailPuts = 1
	_, err := st.CreateTask(ctx, model.Task{Title: "x"})
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("err=%v, want ErrWriteFailed", err)
	}
	if len(st.Tasks()) != 0 || st.Stats().NextID != 1 {
		t.Fatalf("state changed: %+v", st.Stats())
	}
	id, err := st.CreateTask(ctx, model.Task{Title: "x"})
	if err != nil || id != 1 {
		t.Fatalf("retry id=%d, %v", id, err)
	}
}

func TestRecordWriteFailureBurnsID(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	st := openStore(t, mem)
	mem.FailPutKey = "event:"
	if _, err := st.CreateEvent(ctx, model.Event{Date: leapDay, Title: "x"}); !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("err=%v, want ErrWriteFailed", err)
	}
	if len(st.Events()) != 0 {
		t.Fatalf("event visible after failed write")
	}
	mem.FailPutKey = ""
	id, err := st.CreateEvent(ctx, model.Event{Date: leapDay, Title: "x"})
	if err != nil || id != 2 {
		t.Fatalf("id=%d, %v; want 2", id, err)
	}
}

func TestUpdateFailureKeepsOldRecord(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	st := openStore(t, mem)
	id, _ := st.CreateTask(ctx, model.Task{Title: "old"})
	mem.FailPuts = 1
	if err := st.UpdateTask(ctx, id, model.Task{Title: "new"}); !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("err=%v", err)
	}
	if got, _ := st.Task(id); got.Title != "old" {
		t.Fatalf("memory changed to %q", got.Title)
	}

	mem.FailDeletes = 1
	if err := st.DeleteTask(ctx, id); !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("delete err=%v", err)
	}
	if _, ok := st.Task(id); !ok {
		t.Fatalf("task removed after failed delete")
	}
}

func TestCorruptRecordsSkipped(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	st := openStore(t, mem)
	good, _ := st.CreateEvent(ctx, model.Event{Date: leapDay, Title: "good"})
	_, _ = st.CreateTask(ctx, model.Task{Title: "fine"})

	_ = mem.Put(ctx, "event:77", []byte("{not json"))
	_ = mem.Put(ctx, "event:78", []byte(`{"v":1,"id":99,"date":"2024-02-29","title":"wrong id"}`))
	_ = mem.Put(ctx, "event:abc", []byte(`{}`))
	_ = mem.Put(ctx, "task:80", []byte(`{"v":1,"id":80,"title":""}`))
	_ = mem.Put(ctx, "task:81", []byte(`{"v":2,"id":81,"title":"future"}`))

	logger, hook := test.NewNullLogger()
	reopened, rep, err := Open(ctx, mem, Options{Logger: logger})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if rep.Corrupt != 5 {
		t.Fatalf("Corrupt=%d, want 5", rep.Corrupt)
	}
	if rep.Events != 1 || rep.Tasks != 1 {
		t.Fatalf("report=%+v", rep)
	}
	if _, ok := reopened.Event(good); !ok {
		t.Fatalf("good event lost")
	}
	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	if warnings < 5 {
		t.Fatalf("warnings=%d, want >= 5", warnings)
	}
	// Corrupt keys still hold IDs, but the counter stays authoritative.
	if rep.NextID != 3 {
		t.Fatalf("NextID=%d, want 3", rep.NextID)
	}
}

func TestCounterRederived(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	st := openStore(t, mem)
	_, _ = st.CreateTask(ctx, model.Task{Title: "a"})
	_, _ = st.CreateTask(ctx, model.Task{Title: "b"})

	_ = mem.Put(ctx, "counter", []byte("garbage"))
	_, rep, _ := Open(ctx, mem, Options{})
	if rep.NextID != 3 {
		t.Fatalf("NextID from records=%d, want 3", rep.NextID)
	}

	_ = mem.Put(ctx, "counter", []byte("1"))
	_, rep, _ = Open(ctx, mem, Options{})
	if rep.NextID != 3 {
		t.Fatalf("NextID with stale counter=%d, want 3", rep.NextID)
	}

	_ = mem.Put(ctx, "counter", []byte("50"))
	_, rep, _ = Open(ctx, mem, Options{})
	if rep.NextID != 50 {
		t.Fatalf("NextID with ahead counter=%d, want 50", rep.NextID)
	}

	_, rep, _ = Open(ctx, kv.NewMemory(), Options{})
	if rep.NextID != 1 {
		t.Fatalf("empty store NextID=%d, want 1", rep.NextID)
	}
}

func TestIDCounterExhausted(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	_ = mem.Put(ctx, "counter", []byte("4294967294"))
	st := openStore(t, mem)

	id, err := st.CreateTask(ctx, model.Task{Title: "last"})
	if err != nil || id != 4294967294 {
		t.Fatalf("CreateTask=%d, %v, want 4294967294", id, err)
	}
	if _, err := st.CreateTask(ctx, model.Task{Title: "one too many"}); !errors.Is(err, ErrWriteFailed) || !errors.Is(err, ErrIDsExhausted) {
		t.Fatalf("CreateTask past the end err=%v, want ErrWriteFailed+ErrIDsExhausted", err)
	}
	if n := len(st.Tasks()); n != 1 {
		t.Fatalf("Tasks=%d, want 1", n)
	}

	re, rep, err := Open(ctx, mem, Options{})
	if err != nil || rep.Corrupt != 0 || rep.Tasks != 1 {
		t.Fatalf("reopen rep=%+v, err=%v", rep, err)
	}
	if _, err := re.CreateEvent(ctx, model.Event{Date: leapDay, Title: "x"}); !errors.Is(err, ErrIDsExhausted) {
		t.Fatalf("CreateEvent after reopen err=%v, want ErrIDsExhausted", err)
	}
}

func TestMaxIDRecordDoesNotWrapCounter(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	st := openStore(t, mem)
	if _, err := st.CreateTask(ctx, model.Task{Title: "a"}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	body, err := mem.Get(ctx, "task:1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	_ = mem.Delete(ctx, "task:1")
	_ = mem.Delete(ctx, "counter")
	_ = mem.Put(ctx, "task:4294967295", []byte(strings.Replace(string(body), `"id":1,`, `"id":4294967295,`, 1)))

	_, rep, err := Open(ctx, mem, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if rep.NextID != 4294967295 {
		t.Fatalf("NextID=%d, want 4294967295", rep.NextID)
	}
}

type failingList struct{ kv.Store }

func (failingList) List(context.Context, string) ([]string, error) {
	return nil, errors.New("bus error")
}

func TestOpenFailsOnListError(t *testing.T) {
	_, _, err := Open(context.Background(), failingList{kv.NewMemory()}, Options{})
	if !errors.Is(err, ErrReadFailed) {
		t.Fatalf("err=%v, want ErrReadFailed", err)
	}
}

func TestQueriesAndStats(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, kv.NewMemory())
	_, _ = st.CreateEvent(ctx, model.Event{Date: leapDay, Title: "b", Time: model.At(10, 0)})
	_, _ = st.CreateEvent(ctx, model.Event{Date: leapDay, Title: "a", Time: model.At(8, 0)})
	_, _ = st.CreateEvent(ctx, model.Event{Date: leapDay.NextDay(), Title: "c"})
	_, _ = st.CreateTask(ctx, model.Task{Title: "t1"})
	done, _ := st.CreateTask(ctx, model.Task{Title: "t2", Priority: model.High})
	_ = st.ToggleTask(ctx, done)

	day := st.EventsOn(leapDay)
	if len(day) != 2 || day[0].Title != "a" {
		t.Fatalf("EventsOn=%+v", day)
	}
	marks := st.MonthHasEvents(2024, 2)
	if !marks.Has(29) || marks.Has(1) {
		t.Fatalf("MonthHasEvents=%b", marks)
	}
	if st.MonthHasEvents(2024, 3).Len() != 1 {
		t.Fatalf("march marks wrong")
	}
	sorted := st.SortedTasks()
	if sorted[0].Title != "t1" {
		t.Fatalf("SortedTasks=%+v", sorted)
	}
	stats := st.Stats()
	if stats.Events != 3 || stats.Tasks != 2 || stats.Pending != 1 || stats.NextID != 6 {
		t.Fatalf("Stats=%+v", stats)
	}
}

func TestEventsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, kv.NewMemory())
	id, _ := st.CreateEvent(ctx, model.Event{Date: leapDay, Title: "orig"})
	evs := st.Events()
	evs[0].Title = "mutated"
	if e, _ := st.Event(id); e.Title != "orig" {
		t.Fatalf("Events aliased internal state")
	}
}

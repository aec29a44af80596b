package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"dayplan/planner/calendar"
	"dayplan/planner/model"
)

const (
	schemaVersion = 1

	eventPrefix = "event:"
	taskPrefix  = "task:"
	counterKey  = "counter"
)

func eventKey(id uint32) string { return eventPrefix + strconv.FormatUint(uint64(id), 10) }
func taskKey(id uint32) string  { return taskPrefix + strconv.FormatUint(uint64(id), 10) }

func parseKeyID(key, prefix string) (uint32, error) {
	s, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return 0, fmt.Errorf("key %q lacks prefix %q", key, prefix)
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("key %q: bad id", key)
	}
	return uint32(n), nil
}

type clockJSON struct {
	Hour   uint8 `json:"h"`
	Minute uint8 `json:"m"`
}

type eventJSON struct {
	V        int           `json:"v"`
	ID       uint32        `json:"id"`
	Date     calendar.Date `json:"date"`
	Title    string        `json:"title"`
	Time     *clockJSON    `json:"time,omitempty"`
	Priority uint8         `json:"priority"`
}

type taskJSON struct {
	V        int           `json:"v"`
	ID       uint32        `json:"id"`
	Title    string        `json:"title"`
	Done     bool          `json:"done"`
	Priority uint8         `json:"priority"`
	Due      calendar.Date `json:"due"`
}

func encodeEvent(e model.Event) ([]byte, error) {
	r := eventJSON{V: schemaVersion, ID: e.ID, Date: e.Date, Title: e.Title, Priority: uint8(e.Priority)}
	if e.Time.Set {
		r.Time = &clockJSON{Hour: e.Time.Hour, Minute: e.Time.Minute}
	}
	return json.Marshal(r)
}

func decodeEvent(b []byte) (model.Event, error) {
	var r eventJSON
	if err := json.Unmarshal(b, &r); err != nil {
		return model.Event{}, err
	}
	if r.V != schemaVersion {
		return model.Event{}, fmt.Errorf("schema version %d", r.V)
	}
	e := model.Event{ID: r.ID, Date: r.Date, Title: r.Title, Priority: model.Priority(r.Priority)}
	if r.Time != nil {
		e.Time = model.Clock{Hour: r.Time.Hour, Minute: r.Time.Minute, Set: true}
	}
	return e, model.ValidateEvent(e)
}

func encodeTask(t model.Task) ([]byte, error) {
	return json.Marshal(taskJSON{
		V:        schemaVersion,
		ID:       t.ID,
		Title:    t.Title,
		Done:     t.Done,
		Priority: uint8(t.Priority),
		Due:      t.Due,
	})
}

func decodeTask(b []byte) (model.Task, error) {
	var r taskJSON
	if err := json.Unmarshal(b, &r); err != nil {
		return model.Task{}, err
	}
	if r.V != schemaVersion {
		return model.Task{}, fmt.Errorf("schema version %d", r.V)
	}
	t := model.Task{ID: r.ID, Title: r.Title, Done: r.Done, Priority: model.Priority(r.Priority), Due: r.Due}
	return t, model.ValidateTask(t)
}

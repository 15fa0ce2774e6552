package mixer

import (
	"errors"
	"sync"

	"github.com/oszuidwest/zwfm-soundscape/internal/models"
)

// testCatalog is a fixed catalog: slot defaults follow the insertion order.
type testCatalog struct {
	sounds   map[string]models.Sound
	defaults []models.Sound
}

func newTestCatalog(keys ...string) *testCatalog {
	c := &testCatalog{sounds: make(map[string]models.Sound)}
	for _, k := range keys {
		s := models.Sound{ID: "builtin-" + k, Key: k, Name: k, BuiltIn: true}
		c.sounds[k] = s
		c.defaults = append(c.defaults, s)
	}
	return c
}

func (c *testCatalog) addCustom(id string) models.Sound {
	s := models.Sound{ID: id, Name: id}
	c.sounds[id] = s
	return s
}

func (c *testCatalog) Lookup(identifier string) (models.Sound, bool) {
	s, ok := c.sounds[identifier]
	return s, ok
}

func (c *testCatalog) Default(slot models.SlotID) models.Sound {
	return c.defaults[slot.Index()%len(c.defaults)]
}

func (c *testCatalog) sound(key string) models.Sound {
	return c.sounds[key]
}

func defaultTestCatalog() *testCatalog {
	return newTestCatalog("ocean", "rain", "fire", "wind", "forest", "birds", "thunder", "stream")
}

// mixOf builds a state from "sound@volume" pairs in slot order.
func mixOf(c *testCatalog, assignments ...models.SlotAssignment) models.MixState {
	state := models.NewMixState()
	for _, slot := range models.Slots {
		state.Slots[slot] = models.SlotAssignment{Slot: slot, Sound: c.Default(slot)}
	}
	for _, a := range assignments {
		state.Slots[a.Slot] = a
	}
	return state
}

func at(c *testCatalog, slot models.SlotID, key string, volume int) models.SlotAssignment {
	return models.SlotAssignment{Slot: slot, Sound: c.sound(key), Volume: volume}
}

// failingStore rejects every write.
type failingStore struct {
	mu     sync.Mutex
	writes int
}

var errStorageUnavailable = errors.New("storage unavailable")

func (s *failingStore) Get(string) (string, bool, error) {
	return "", false, errStorageUnavailable
}

func (s *failingStore) Set(string, string) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return errStorageUnavailable
}

func (s *failingStore) Remove(string) error {
	return errStorageUnavailable
}

// countingStore records every Set.
type countingStore struct {
	mu     sync.Mutex
	values map[string]string
	sets   []string
}

func newCountingStore() *countingStore {
	return &countingStore{values: make(map[string]string)}
}

func (s *countingStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *countingStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.sets = append(s.sets, value)
	return nil
}

func (s *countingStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *countingStore) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sets)
}

// engineCall is one recorded Engine invocation.
type engineCall struct {
	op    string
	slot  models.SlotID
	state models.MixState
}

// fakeEngine tracks the gain each slot would play at.
type fakeEngine struct {
	mu      sync.Mutex
	calls   []engineCall
	playing map[models.SlotID]bool
	sounds  map[models.SlotID]string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		playing: make(map[models.SlotID]bool),
		sounds:  make(map[models.SlotID]string),
	}
}

func (e *fakeEngine) Assign(a models.SlotAssignment, muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, engineCall{op: "assign", slot: a.Slot})
	e.sounds[a.Slot] = a.Sound.Identifier()
	e.playing[a.Slot] = a.Audible(muted)
}

func (e *fakeEngine) Apply(a models.SlotAssignment, muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, engineCall{op: "apply", slot: a.Slot})
	e.sounds[a.Slot] = a.Sound.Identifier()
	e.playing[a.Slot] = a.Audible(muted)
}

func (e *fakeEngine) ApplyAll(state models.MixState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, engineCall{op: "apply_all", state: state.Clone()})
	for _, a := range state.Ordered() {
		e.sounds[a.Slot] = a.Sound.Identifier()
		e.playing[a.Slot] = a.Audible(state.Muted)
	}
}

func (e *fakeEngine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, engineCall{op: "stop_all"})
	for slot := range e.playing {
		e.playing[slot] = false
	}
}

func (e *fakeEngine) ops() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.calls))
	for _, c := range e.calls {
		out = append(out, c.op)
	}
	return out
}

func (e *fakeEngine) isPlaying(slot models.SlotID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing[slot]
}

func (e *fakeEngine) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}

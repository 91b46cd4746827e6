package qtable

import (
	"encoding/json"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Entry is a single explicitly set value of the table
type Entry struct {
	State  Tuple
	Action Tuple
	Value  float64
}

type entryJSON struct {
	State  Tuple `json:"state"`
	Action Tuple `json:"action"`
	Value  Float `json:"value"`
}

// MarshalJSON encodes non-finite values as strings, see Float
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{State: e.State, Action: e.Action, Value: Float(e.Value)})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var j entryJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*e = Entry{State: j.State, Action: j.Action, Value: float64(j.Value)}
	return nil
}

// ValueTable is a sparse state -> action -> value map. Pairs which were never
// set read as 0. Reads never insert entries.
//
// ValueTable is not safe for concurrent use.
type ValueTable struct {
	values map[Tuple]map[Tuple]float64
}

// NewValueTable returns an empty table
func NewValueTable() *ValueTable {
	return &ValueTable{
		values: make(map[Tuple]map[Tuple]float64),
	}
}

// Get returns the value of the pair or 0 if it was never set
func (t *ValueTable) Get(state, action Tuple) float64 {
	actions, ok := t.values[state]
	if !ok {
		return 0
	}
	return actions[action]
}

// Set stores the value of the pair, overwriting any previous value
func (t *ValueTable) Set(state, action Tuple, value float64) {
	actions, ok := t.values[state]
	if !ok {
		actions = make(map[Tuple]float64)
		t.values[state] = actions
	}
	actions[action] = value
}

// Len returns the number of explicitly set pairs
func (t *ValueTable) Len() int {
	count := 0
	for _, actions := range t.values {
		count += len(actions)
	}
	return count
}

// States returns the states which have at least one value, in encoding order
func (t *ValueTable) States() []Tuple {
	states := maps.Keys(t.values)
	slices.SortFunc(states, Tuple.Less)
	return states
}

// Actions returns a copy of the values set for the state
func (t *ValueTable) Actions(state Tuple) map[Tuple]float64 {
	return maps.Clone(t.values[state])
}

// Entries returns a snapshot of all explicitly set pairs ordered by state and
// then by action
func (t *ValueTable) Entries() []Entry {
	entries := make([]Entry, 0, t.Len())
	for _, state := range t.States() {
		actions := maps.Keys(t.values[state])
		slices.SortFunc(actions, Tuple.Less)
		for _, action := range actions {
			entries = append(entries, Entry{
				State:  state,
				Action: action,
				Value:  t.values[state][action],
			})
		}
	}
	return entries
}

// Clear removes all the entries
func (t *ValueTable) Clear() {
	t.values = make(map[Tuple]map[Tuple]float64)
}

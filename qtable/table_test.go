package qtable

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ugorji/go/codec"
)

var (
	stateOne  = MustTuple([]int{1, 2})
	stateTwo  = MustTuple([]string{"s", "2"})
	actionOne = MustTuple([]int{0})
	actionTwo = MustTuple([]interface{}{"left", 1.5})
)

func TestGetDefault(t *testing.T) {
	table := NewValueTable()
	if v := table.Get(stateOne, actionOne); v != 0 {
		t.Errorf("expected 0 for unseen pair, got %f", v)
	}
	table.Set(stateOne, actionOne, 3)
	if v := table.Get(stateOne, actionTwo); v != 0 {
		t.Errorf("expected 0 for unseen action, got %f", v)
	}
	if table.Len() != 1 || len(table.States()) != 1 {
		t.Errorf("reads should not insert entries, got %d entries", table.Len())
	}
}

func TestSetGet(t *testing.T) {
	table := NewValueTable()
	table.Set(MustTuple([]int{1, 2}), MustTuple([]int{0}), 5)
	if v := table.Get(MustTuple([2]int{1, 2}), MustTuple([1]int64{0})); v != 5 {
		t.Errorf("expected 5, got %f", v)
	}
	table.Set(stateOne, actionOne, -1)
	if v := table.Get(stateOne, actionOne); v != -1 {
		t.Errorf("expected overwrite to -1, got %f", v)
	}
	if table.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", table.Len())
	}
}

func TestCrossKindKeys(t *testing.T) {
	table := NewValueTable()
	table.Set(MustTuple([]int{1, 2}), MustTuple([]int{0}), 5)

	if v := table.Get(MustTuple([]float64{1, 2}), MustTuple([]bool{false})); v != 5 {
		t.Errorf("expected float and bool keys to find the int entry, got %f", v)
	}

	var state, action Tuple
	if err := json.Unmarshal([]byte(`[1.0, 2.0]`), &state); err != nil {
		t.Fatalf("error unmarshalling state: %s", err)
	}
	if err := json.Unmarshal([]byte(`[0.0]`), &action); err != nil {
		t.Fatalf("error unmarshalling action: %s", err)
	}
	if v := table.Get(state, action); v != 5 {
		t.Errorf("expected JSON floats to find the int entry, got %f", v)
	}

	table.Set(MustTuple([]float32{1, 2}), MustTuple([]interface{}{0.0}), 6)
	if table.Len() != 1 || table.Get(MustTuple([]int{1, 2}), MustTuple([]int{0})) != 6 {
		t.Errorf("expected the float write to overwrite the int entry, got %v", table.Entries())
	}

	table.Set(MustTuple("ab"), MustTuple([]int{1}), 3)
	if v := table.Get(MustTuple([]string{"a", "b"}), MustTuple([]bool{true})); v != 3 {
		t.Errorf("expected string state to equal its characters, got %f", v)
	}
}

func TestNonFiniteValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.npy")
	table := NewValueTable()
	table.Set(stateOne, actionOne, math.Inf(1))
	table.Set(stateOne, actionTwo, math.NaN())
	if err := table.Save(path); err != nil {
		t.Fatalf("error saving: %s", err)
	}
	loaded := NewValueTable()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("error loading: %s", err)
	}
	if v := loaded.Get(stateOne, actionOne); !math.IsInf(v, 1) {
		t.Errorf("expected +Inf, got %f", v)
	}
	if v := loaded.Get(stateOne, actionTwo); !math.IsNaN(v) {
		t.Errorf("expected NaN, got %f", v)
	}

	for _, e := range loaded.Entries() {
		b, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("error marshalling entry %s %s: %s", e.State, e.Action, err)
		}
		var back Entry
		if err := json.Unmarshal(b, &back); err != nil {
			t.Fatalf("error unmarshalling %s: %s", b, err)
		}
		if back.State != e.State || back.Action != e.Action {
			t.Errorf("entry keys changed: %s", b)
		}
		if math.IsInf(e.Value, 1) != math.IsInf(back.Value, 1) || math.IsNaN(e.Value) != math.IsNaN(back.Value) {
			t.Errorf("entry value changed: %s", b)
		}
	}
}

func TestEntries(t *testing.T) {
	table := NewValueTable()
	table.Set(stateTwo, actionOne, 1)
	table.Set(stateOne, actionTwo, 2)
	table.Set(stateOne, actionOne, 3)

	entries := table.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.State.Less(prev.State) || (cur.State == prev.State && cur.Action.Less(prev.Action)) {
			t.Errorf("entries not sorted at %d", i)
		}
	}

	actions := table.Actions(stateOne)
	if len(actions) != 2 || actions[actionTwo] != 2 {
		t.Errorf("unexpected actions %v", actions)
	}
	actions[actionTwo] = 10
	if table.Get(stateOne, actionTwo) != 2 {
		t.Error("Actions should return a copy")
	}

	table.Clear()
	if table.Len() != 0 {
		t.Errorf("expected empty table after clear, got %d", table.Len())
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.npy")
	table := NewValueTable()
	table.Set(stateOne, actionOne, 1.25)
	table.Set(stateOne, actionTwo, -4)
	table.Set(stateTwo, actionTwo, 9)
	table.Set(Tuple{}, Tuple{}, 0.5)
	if err := table.Save(path); err != nil {
		t.Fatalf("error saving: %s", err)
	}

	loaded := NewValueTable()
	loaded.Set(MustTuple([]int{42}), actionOne, 7)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("error loading: %s", err)
	}
	if loaded.Len() != table.Len() {
		t.Errorf("expected %d entries, got %d", table.Len(), loaded.Len())
	}
	for _, e := range table.Entries() {
		if v := loaded.Get(e.State, e.Action); v != e.Value {
			t.Errorf("%s %s: expected %f, got %f", e.State, e.Action, e.Value, v)
		}
	}
	if v := loaded.Get(MustTuple([]int{42}), actionOne); v != 0 {
		t.Errorf("load should replace the table, got %f", v)
	}
	if v := loaded.Get(stateTwo, actionOne); v != 0 {
		t.Errorf("expected 0 for unseen pair after load, got %f", v)
	}
}

func TestLoadMissing(t *testing.T) {
	table := NewValueTable()
	table.Set(stateOne, actionOne, 1)
	err := table.Load(filepath.Join(t.TempDir(), "missing.npy"))
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected error to wrap os.ErrNotExist, got %v", err)
	}
	if table.Get(stateOne, actionOne) != 1 {
		t.Error("failed load should leave the table untouched")
	}
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()

	var wrongMagic bytes.Buffer
	err := codec.NewEncoder(&wrongMagic, modelHandle()).Encode(&modelFile{Magic: "NOPE", Version: modelVersion})
	if err != nil {
		t.Fatalf("error encoding: %s", err)
	}
	var badTuple bytes.Buffer
	err = codec.NewEncoder(&badTuple, modelHandle()).Encode(&modelFile{
		Magic:   modelMagic,
		Version: modelVersion,
		States:  []stateRecord{{State: []byte{'?'}, Actions: []actionRecord{{Action: actionOne.Bytes(), Value: 1}}}},
	})
	if err != nil {
		t.Fatalf("error encoding: %s", err)
	}

	cases := map[string][]byte{
		"garbage":     []byte("this is not a model"),
		"empty":       {},
		"wrong_magic": wrongMagic.Bytes(),
		"bad_tuple":   badTuple.Bytes(),
	}
	for name, contents := range cases {
		path := filepath.Join(dir, name+".npy")
		if err := os.WriteFile(path, contents, 0644); err != nil {
			t.Fatalf("error writing file: %s", err)
		}
		table := NewValueTable()
		table.Set(stateOne, actionOne, 1)
		err := table.Load(path)
		if !errors.Is(err, ErrCorruptModel) {
			t.Errorf("%s: expected ErrCorruptModel, got %v", name, err)
		}
		if table.Get(stateOne, actionOne) != 1 || table.Len() != 1 {
			t.Errorf("%s: failed load should leave the table untouched", name)
		}
	}
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.npy")
	table := NewValueTable()
	table.Set(stateOne, actionOne, 1)
	if err := table.Save(path); err != nil {
		t.Fatalf("error saving: %s", err)
	}
	table.Clear()
	table.Set(stateTwo, actionTwo, 2)
	if err := table.Save(path); err != nil {
		t.Fatalf("error saving: %s", err)
	}

	loaded := NewValueTable()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("error loading: %s", err)
	}
	if loaded.Len() != 1 || loaded.Get(stateTwo, actionTwo) != 2 {
		t.Errorf("expected only the second save, got %v", loaded.Entries())
	}

	files, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("error reading dir: %s", err)
	}
	if len(files) != 1 {
		t.Errorf("temporary files left behind: %d files", len(files))
	}
}

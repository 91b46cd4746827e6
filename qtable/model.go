package qtable

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ugorji/go/codec"
)

var (
	// ErrModelNotFound is returned when loading a model file which does not exist
	ErrModelNotFound = errors.New("model not found")
	// ErrCorruptModel is returned when the model file cannot be decoded
	ErrCorruptModel = errors.New("corrupt model")
)

const (
	modelMagic   = "QTBL"
	modelVersion = 1
)

// ModelError is returned by Load. It matches both its Kind and the
// underlying error with errors.Is.
type ModelError struct {
	Path string
	Kind error
	Err  error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Path, e.Err)
}

func (e *ModelError) Is(target error) bool {
	return target == e.Kind
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// modelFile is the persisted form of a ValueTable. Tuples are stored as their
// tagged binary encoding.
type modelFile struct {
	Magic   string        `codec:"magic"`
	Version uint          `codec:"version"`
	States  []stateRecord `codec:"states"`
}

type stateRecord struct {
	State   []byte         `codec:"state"`
	Actions []actionRecord `codec:"actions"`
}

type actionRecord struct {
	Action []byte  `codec:"action"`
	Value  float64 `codec:"value"`
}

func modelHandle() *codec.MsgpackHandle {
	h := new(codec.MsgpackHandle)
	h.WriteExt = true
	return h
}

// Encode writes the explicitly set entries to w
func (t *ValueTable) Encode(w io.Writer) error {
	m := modelFile{
		Magic:   modelMagic,
		Version: modelVersion,
		States:  make([]stateRecord, 0, len(t.values)),
	}
	var record *stateRecord
	for _, e := range t.Entries() {
		if record == nil || string(record.State) != e.State.enc {
			m.States = append(m.States, stateRecord{State: e.State.Bytes()})
			record = &m.States[len(m.States)-1]
		}
		record.Actions = append(record.Actions, actionRecord{
			Action: e.Action.Bytes(),
			Value:  e.Value,
		})
	}
	return codec.NewEncoder(w, modelHandle()).Encode(&m)
}

// Decode replaces the contents of the table with the entries read from r.
// The table is left untouched when an error is returned.
func (t *ValueTable) Decode(r io.Reader) error {
	values, err := decodeModel(r)
	if err != nil {
		return err
	}
	t.values = values
	return nil
}

func decodeModel(r io.Reader) (map[Tuple]map[Tuple]float64, error) {
	var m modelFile
	if err := codec.NewDecoder(r, modelHandle()).Decode(&m); err != nil {
		return nil, err
	}
	if m.Magic != modelMagic {
		return nil, fmt.Errorf("bad magic %q", m.Magic)
	}
	if m.Version != modelVersion {
		return nil, fmt.Errorf("unsupported version %d", m.Version)
	}

	values := make(map[Tuple]map[Tuple]float64, len(m.States))
	for _, s := range m.States {
		state, err := ParseTuple(s.State)
		if err != nil {
			return nil, fmt.Errorf("state: %w", err)
		}
		for _, a := range s.Actions {
			action, err := ParseTuple(a.Action)
			if err != nil {
				return nil, fmt.Errorf("action of state %s: %w", state, err)
			}
			actions, ok := values[state]
			if !ok {
				actions = make(map[Tuple]float64)
				values[state] = actions
			}
			actions[action] = a.Value
		}
	}
	return values, nil
}

// Save writes the table to path. The file is written next to path and renamed
// over it once complete.
func (t *ValueTable) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("error creating model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := t.Encode(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("error encoding model: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error writing model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("error writing model file: %w", err)
	}
	return nil
}

// Load replaces the contents of the table with the model stored at path.
// Either the whole table is replaced or it is left untouched.
func (t *ValueTable) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ModelError{Path: path, Kind: ErrModelNotFound, Err: err}
		}
		return fmt.Errorf("error opening model file: %w", err)
	}
	defer f.Close()

	if err := t.Decode(f); err != nil {
		return &ModelError{Path: path, Kind: ErrCorruptModel, Err: err}
	}
	return nil
}

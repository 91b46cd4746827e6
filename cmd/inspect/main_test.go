package inspect

import (
	"bytes"
	"encoding/json"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/netrixframework/qagent/qtable"
)

func TestInspectEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.npy")
	table := qtable.NewValueTable()
	table.Set(qtable.MustTuple([]int{1}), qtable.MustTuple([]string{"a"}), 1.5)
	table.Set(qtable.MustTuple([]int{2}), qtable.MustTuple([]string{"b"}), -2)
	if err := table.Save(path); err != nil {
		t.Fatalf("error saving: %s", err)
	}

	out := new(bytes.Buffer)
	cmd := InspectCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--entries", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("error running inspect: %s", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out.String())
	}
	var e qtable.Entry
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("error decoding entry: %s", err)
	}
	if e.State != qtable.MustTuple([]int{1}) || e.Action != qtable.MustTuple([]string{"a"}) || e.Value != 1.5 {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestInspectMissing(t *testing.T) {
	cmd := InspectCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.npy")})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestInspectNonFinite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.npy")
	table := qtable.NewValueTable()
	table.Set(qtable.MustTuple([]int{1}), qtable.MustTuple([]int{0}), math.Inf(-1))
	if err := table.Save(path); err != nil {
		t.Fatalf("error saving: %s", err)
	}

	out := new(bytes.Buffer)
	cmd := InspectCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--entries", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("error running inspect: %s", err)
	}
	if line := strings.TrimSpace(out.String()); line != `{"state":[1],"action":[0],"value":"-Inf"}` {
		t.Errorf("unexpected output %s", line)
	}
}

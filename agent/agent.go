package agent

import (
	"errors"

	"github.com/netrixframework/qagent/log"
	"github.com/netrixframework/qagent/qtable"
)

var (
	// ErrUnimplemented is returned by operations a concrete agent has to provide
	ErrUnimplemented = errors.New("not implemented by agent")
)

// Agent holds a value table and learns from observed transitions
type Agent interface {
	// LearningModeOn allows Update to learn
	LearningModeOn()
	// LearningModeOff asks Update not to learn
	LearningModeOff()
	// Learning returns the learning mode flag
	Learning() bool
	// QValue returns the value of the state action pair, 0 if unseen
	QValue(qtable.Tuple, qtable.Tuple) float64
	// SetQValue stores the value of the state action pair
	SetQValue(qtable.Tuple, qtable.Tuple, float64)
	// Value estimates the value of the state given the possible actions
	Value(qtable.Tuple, []qtable.Tuple) (float64, error)
	// Update observes the transition state, action, reward, next state
	Update(qtable.Tuple, qtable.Tuple, float64, qtable.Tuple) error
	// SaveModel persists the value table to the path
	SaveModel(string) error
	// LoadModel replaces the value table with the one stored at the path
	LoadModel(string) error
	// Table returns the value table owned by the agent
	Table() *qtable.ValueTable
}

// Actor is an agent which can pick an action
type Actor interface {
	// Action picks one of the actions, false if there are none
	Action([]qtable.Tuple) (qtable.Tuple, bool)
}

// Base implements the table and learning mode bookkeeping shared by agents.
// Concrete agents embed Base and override Value and Update.
type Base struct {
	table *qtable.ValueTable
	learn bool
	name  string

	Logger *log.Logger
}

var _ Agent = &Base{}

// NewBase instantiates Base with an empty table and learning mode on
func NewBase(name string, logger *log.Logger) *Base {
	return &Base{
		table:  qtable.NewValueTable(),
		learn:  true,
		name:   name,
		Logger: logger.With(log.LogParams{"agent": name}),
	}
}

// Name of the agent
func (b *Base) Name() string {
	return b.name
}

func (b *Base) LearningModeOn() {
	b.learn = true
}

func (b *Base) LearningModeOff() {
	b.learn = false
}

func (b *Base) Learning() bool {
	return b.learn
}

func (b *Base) QValue(state, action qtable.Tuple) float64 {
	return b.table.Get(state, action)
}

func (b *Base) SetQValue(state, action qtable.Tuple, value float64) {
	b.table.Set(state, action, value)
}

// Value returns ErrUnimplemented
func (b *Base) Value(_ qtable.Tuple, _ []qtable.Tuple) (float64, error) {
	return 0, ErrUnimplemented
}

// Update returns ErrUnimplemented
func (b *Base) Update(_ qtable.Tuple, _ qtable.Tuple, _ float64, _ qtable.Tuple) error {
	return ErrUnimplemented
}

func (b *Base) SaveModel(path string) error {
	if err := b.table.Save(path); err != nil {
		return err
	}
	b.Logger.With(log.LogParams{
		"path":    path,
		"entries": b.table.Len(),
	}).Info("Saved model")
	return nil
}

func (b *Base) LoadModel(path string) error {
	if err := b.table.Load(path); err != nil {
		return err
	}
	b.Logger.With(log.LogParams{
		"path":    path,
		"entries": b.table.Len(),
	}).Info("Loaded model")
	return nil
}

func (b *Base) Table() *qtable.ValueTable {
	return b.table
}

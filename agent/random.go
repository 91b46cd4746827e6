package agent

import (
	"time"

	"github.com/netrixframework/qagent/log"
	"github.com/netrixframework/qagent/qtable"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// RandomAgent picks actions uniformly at random and never learns
type RandomAgent struct {
	*Base
	src rand.Source
}

var _ Agent = &RandomAgent{}
var _ Actor = &RandomAgent{}

// NewRandomAgent instantiates RandomAgent. A zero seed seeds from the clock
func NewRandomAgent(seed uint64, logger *log.Logger) *RandomAgent {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomAgent{
		Base: NewBase("random", logger),
		src:  rand.NewSource(seed),
	}
}

// Value is the expected value of picking one of the actions uniformly, 0 when
// there are no actions
func (r *RandomAgent) Value(state qtable.Tuple, actions []qtable.Tuple) (float64, error) {
	if len(actions) == 0 {
		return 0, nil
	}
	vals := make([]float64, len(actions))
	for i, action := range actions {
		vals[i] = r.QValue(state, action)
	}
	return stat.Mean(vals, nil), nil
}

func (r *RandomAgent) Action(actions []qtable.Tuple) (qtable.Tuple, bool) {
	if len(actions) == 0 {
		return qtable.Tuple{}, false
	}
	weights := make([]float64, len(actions))
	for i := range weights {
		weights[i] = 1
	}
	i, ok := sampleuv.NewWeighted(weights, r.src).Take()
	if !ok {
		return qtable.Tuple{}, false
	}
	return actions[i], true
}

// Update does nothing, the random agent does not learn
func (r *RandomAgent) Update(_ qtable.Tuple, _ qtable.Tuple, _ float64, _ qtable.Tuple) error {
	return nil
}

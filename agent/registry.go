package agent

import (
	"errors"
	"fmt"

	"github.com/netrixframework/qagent/config"
	"github.com/netrixframework/qagent/log"
)

var (
	// ErrUnknownAgent is returned when the configured kind does not exist
	ErrUnknownAgent = errors.New("unknown agent")
)

// New creates the agent of the configured kind
func New(c *config.AgentConfig, logger *log.Logger) (Agent, error) {
	var agent Agent = nil
	switch c.Kind {
	case "random":
		agent = NewRandomAgent(c.Seed, logger)
	}
	if agent == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, c.Kind)
	}
	logger.With(log.LogParams{"kind": c.Kind}).Debug("Created agent")
	return agent, nil
}

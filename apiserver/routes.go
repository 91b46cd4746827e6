package apiserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netrixframework/qagent/agent"
	"github.com/netrixframework/qagent/log"
	"github.com/netrixframework/qagent/qtable"
)

type qValueRequest struct {
	State  *qtable.Tuple `json:"state"`
	Action *qtable.Tuple `json:"action"`
	Value  *qtable.Float `json:"value"`
}

type valueRequest struct {
	State   *qtable.Tuple  `json:"state"`
	Actions []qtable.Tuple `json:"actions"`
}

type updateRequest struct {
	State     *qtable.Tuple `json:"state"`
	Action    *qtable.Tuple `json:"action"`
	Reward    *qtable.Float `json:"reward"`
	NextState *qtable.Tuple `json:"next_state"`
}

type tupleField struct {
	name  string
	tuple *qtable.Tuple
}

// requireTuples returns an error naming the first missing tuple
func requireTuples(fields ...tupleField) error {
	for _, f := range fields {
		if f.tuple == nil {
			return fmt.Errorf("missing %s", f.name)
		}
	}
	return nil
}

type learningRequest struct {
	Learning *bool `json:"learning"`
}

type modelRequest struct {
	Path string `json:"path"`
}

func (srv *APIServer) badRequest(c *gin.Context, err error) {
	srv.Logger.With(log.LogParams{"error": err}).Info("Bad request")
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// handleQValueGet is the handler for `POST /qvalue`, returns the value of a pair
func (srv *APIServer) handleQValueGet(c *gin.Context) {
	var req qValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		srv.badRequest(c, err)
		return
	}
	if err := requireTuples(tupleField{"state", req.State}, tupleField{"action", req.Action}); err != nil {
		srv.badRequest(c, err)
		return
	}
	srv.agentLock.Lock()
	value := srv.agent.QValue(*req.State, *req.Action)
	srv.agentLock.Unlock()
	c.JSON(http.StatusOK, gin.H{"value": qtable.Float(value)})
}

// handleQValueSet is the handler for `PUT /qvalue`
func (srv *APIServer) handleQValueSet(c *gin.Context) {
	var req qValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		srv.badRequest(c, err)
		return
	}
	if err := requireTuples(tupleField{"state", req.State}, tupleField{"action", req.Action}); err != nil {
		srv.badRequest(c, err)
		return
	}
	if req.Value == nil {
		srv.badRequest(c, errors.New("missing value"))
		return
	}
	srv.agentLock.Lock()
	srv.agent.SetQValue(*req.State, *req.Action, float64(*req.Value))
	srv.agentLock.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (srv *APIServer) handleValue(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		srv.badRequest(c, err)
		return
	}
	if err := requireTuples(tupleField{"state", req.State}); err != nil {
		srv.badRequest(c, err)
		return
	}
	srv.agentLock.Lock()
	value, err := srv.agent.Value(*req.State, req.Actions)
	srv.agentLock.Unlock()
	if err != nil {
		srv.agentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": qtable.Float(value)})
}

// handleAction is the handler for `POST /action`. Responds with a null action
// when there are no candidates.
func (srv *APIServer) handleAction(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		srv.badRequest(c, err)
		return
	}
	actor, ok := srv.agent.(agent.Actor)
	if !ok {
		srv.agentError(c, agent.ErrUnimplemented)
		return
	}
	srv.agentLock.Lock()
	action, ok := actor.Action(req.Actions)
	srv.agentLock.Unlock()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"action": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": action})
}

func (srv *APIServer) handleUpdate(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		srv.badRequest(c, err)
		return
	}
	err := requireTuples(
		tupleField{"state", req.State},
		tupleField{"action", req.Action},
		tupleField{"next_state", req.NextState},
	)
	if err != nil {
		srv.badRequest(c, err)
		return
	}
	if req.Reward == nil {
		srv.badRequest(c, errors.New("missing reward"))
		return
	}
	srv.agentLock.Lock()
	err = srv.agent.Update(*req.State, *req.Action, float64(*req.Reward), *req.NextState)
	srv.agentLock.Unlock()
	if err != nil {
		srv.agentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (srv *APIServer) handleLearningGet(c *gin.Context) {
	srv.agentLock.Lock()
	learning := srv.agent.Learning()
	srv.agentLock.Unlock()
	c.JSON(http.StatusOK, gin.H{"learning": learning})
}

func (srv *APIServer) handleLearningSet(c *gin.Context) {
	var req learningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		srv.badRequest(c, err)
		return
	}
	if req.Learning == nil {
		srv.badRequest(c, errors.New("missing learning"))
		return
	}
	srv.agentLock.Lock()
	if *req.Learning {
		srv.agent.LearningModeOn()
	} else {
		srv.agent.LearningModeOff()
	}
	learning := srv.agent.Learning()
	srv.agentLock.Unlock()
	c.JSON(http.StatusOK, gin.H{"learning": learning})
}

func (srv *APIServer) modelPathFor(c *gin.Context) (string, bool) {
	var req modelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			srv.badRequest(c, err)
			return "", false
		}
	}
	if req.Path == "" {
		req.Path = srv.modelPath
	}
	if req.Path == "" {
		srv.badRequest(c, errors.New("no model path"))
		return "", false
	}
	return req.Path, true
}

// handleModelSave is the handler for `POST /model/save`. The configured model
// path is used when the request does not specify one.
func (srv *APIServer) handleModelSave(c *gin.Context) {
	path, ok := srv.modelPathFor(c)
	if !ok {
		return
	}
	srv.agentLock.Lock()
	err := srv.agent.SaveModel(path)
	srv.agentLock.Unlock()
	if err != nil {
		srv.agentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (srv *APIServer) handleModelLoad(c *gin.Context) {
	path, ok := srv.modelPathFor(c)
	if !ok {
		return
	}
	srv.agentLock.Lock()
	err := srv.agent.LoadModel(path)
	srv.agentLock.Unlock()
	if err != nil {
		srv.agentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (srv *APIServer) handleStats(c *gin.Context) {
	srv.agentLock.Lock()
	table := srv.agent.Table()
	stats := gin.H{
		"states":   len(table.States()),
		"entries":  table.Len(),
		"learning": srv.agent.Learning(),
	}
	srv.agentLock.Unlock()
	c.JSON(http.StatusOK, stats)
}

// agentError maps agent errors to status codes
func (srv *APIServer) agentError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, agent.ErrUnimplemented):
		status = http.StatusNotImplemented
	case errors.Is(err, qtable.ErrModelNotFound):
		status = http.StatusNotFound
	case errors.Is(err, qtable.ErrCorruptModel):
		status = http.StatusUnprocessableEntity
	}
	srv.Logger.With(log.LogParams{
		"error":  err,
		"status": status,
	}).Warn("Agent request failed")
	c.JSON(status, gin.H{"error": err.Error()})
}

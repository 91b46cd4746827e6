package apiserver

import (
	goctx "context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netrixframework/qagent/agent"
	"github.com/netrixframework/qagent/config"
	"github.com/netrixframework/qagent/log"
	"github.com/netrixframework/qagent/types"
)

// DefaultAddr is the default address of the APIServer
const DefaultAddr = "0.0.0.0:7075"

// APIServer exposes an agent over HTTP so that an external training loop can
// query and update it. Requests are handled one at a time.
type APIServer struct {
	router    *gin.Engine
	agent     agent.Agent
	agentLock *sync.Mutex
	modelPath string

	server *http.Server
	addr   string

	*types.BaseService
}

var _ types.Service = &APIServer{}

// NewAPIServer instantiates APIServer
func NewAPIServer(conf *config.Config, a agent.Agent, logger *log.Logger) *APIServer {
	addr := conf.APIServerAddr
	if addr == "" {
		addr = DefaultAddr
	}
	server := &APIServer{
		agent:       a,
		agentLock:   new(sync.Mutex),
		modelPath:   conf.Agent.ModelPath,
		addr:        addr,
		BaseService: types.NewBaseService("APIServer", logger),
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(server.logMiddleware, gin.Recovery())

	router.POST("/qvalue", server.handleQValueGet)
	router.PUT("/qvalue", server.handleQValueSet)
	router.POST("/value", server.handleValue)
	router.POST("/action", server.handleAction)
	router.POST("/update", server.handleUpdate)
	router.GET("/learning", server.handleLearningGet)
	router.PUT("/learning", server.handleLearningSet)
	router.POST("/model/save", server.handleModelSave)
	router.POST("/model/load", server.handleModelLoad)
	router.GET("/stats", server.handleStats)

	server.router = router
	server.server = &http.Server{
		Addr:    server.addr,
		Handler: router,
	}

	return server
}

// Handler returns the http handler serving the routes
func (a *APIServer) Handler() http.Handler {
	return a.router
}

func (a *APIServer) logMiddleware(c *gin.Context) {
	start := time.Now()
	path := c.Request.URL.Path
	raw := c.Request.URL.RawQuery

	// Process request
	c.Next()

	end := time.Now()
	if raw != "" {
		path = path + "?" + raw
	}
	a.Logger.With(log.LogParams{
		"timestamp":   end,
		"latency":     end.Sub(start).String(),
		"client_ip":   c.ClientIP(),
		"method":      c.Request.Method,
		"status_code": c.Writer.Status(),
		"error":       c.Errors.ByType(gin.ErrorTypePrivate).String(),
		"body_size":   c.Writer.Size(),
		"path":        path,
	}).Debug("Handled request")
}

// Start starts the APIServer and implements Service. Returns an error when
// the address cannot be bound.
func (a *APIServer) Start() error {
	listener, err := net.Listen("tcp", a.addr)
	if err != nil {
		return err
	}
	a.StartRunning()
	go func() {
		a.Logger.With(log.LogParams{
			"addr": listener.Addr().String(),
		}).Info("API server starting!")
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.With(log.LogParams{
				"addr": a.addr,
				"err":  err,
			}).Error("API server closed!")
			a.StopRunning()
		}
	}()
	return nil
}

// Stop stops the APIServer and implements Service
func (a *APIServer) Stop() error {
	a.StopRunning()
	ctx, cancel := goctx.WithTimeout(goctx.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.Logger.Error("API server forcefully shutdown")
		return err
	}
	a.Logger.Info("API server stopped!")
	return nil
}

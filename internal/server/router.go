package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/config"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/logging"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// NewRouter builds the route tree. Deps.Parser and Deps.Store must be set.
func NewRouter(deps Deps) http.Handler {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.MaxBatch <= 0 {
		deps.MaxBatch = config.DefaultMaxBatch
	}

	resp := responder{clock: deps.Clock}
	h := &handlers{deps: deps, resp: resp}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(requestID())
	r.Use(accessLog(deps.Logger, deps.Metrics))
	r.Use(recovery(deps.Logger, resp))
	r.Use(cors(deps.CORSOrigins))

	r.GET("/", h.index)
	r.GET("/health", h.health)

	r.POST("/parse", h.parse)
	r.POST("/parse/batch", h.parseBatch)

	tasks := r.Group("/tasks")
	{
		tasks.POST("", h.createTask)
		tasks.GET("", h.listTasks)
		tasks.GET("/:id", h.getTask)
		tasks.PUT("/:id", h.updateTask)
		tasks.DELETE("/:id", h.deleteTask)
		tasks.POST("/:id/complete", h.completeTask)
	}

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	r.NoRoute(func(c *gin.Context) {
		resp.fail(c, http.StatusNotFound, "Endpoint not found")
	})
	r.NoMethod(func(c *gin.Context) {
		resp.fail(c, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

// endpoints is the route listing served by the index.
var endpoints = map[string]string{
	"GET /":                    "Service information",
	"GET /health":              "Health check",
	"POST /parse":              "Parse a single text",
	"POST /parse/batch":        "Parse multiple texts",
	"POST /tasks":              "Create a task",
	"GET /tasks":               "List tasks",
	"GET /tasks/:id":           "Get a task",
	"PUT /tasks/:id":           "Update a task",
	"DELETE /tasks/:id":        "Delete a task",
	"POST /tasks/:id/complete": "Mark a task as completed",
	"GET /metrics":             "Prometheus metrics",
}

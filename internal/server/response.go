package server

import (
	"time"

	"github.com/gin-gonic/gin"
)

// envelope is the shape of every JSON response.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

type responder struct {
	clock func() time.Time
}

func (r responder) stamp() string {
	return r.clock().UTC().Format(time.RFC3339Nano)
}

func (r responder) ok(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data, Timestamp: r.stamp()})
}

func (r responder) fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Error: msg, Timestamp: r.stamp()})
}

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/internal/store"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/logging"
)

// marshalParsed encodes the parse result stored with a task.
var marshalParsed = json.Marshal

type handlers struct {
	deps Deps
	resp responder
}

func (h *handlers) index(c *gin.Context) {
	h.resp.ok(c, http.StatusOK, gin.H{
		"service":     ServiceName,
		"version":     h.deps.Version,
		"description": "Parse academic text and manage tasks",
		"endpoints":   endpoints,
	})
}

func (h *handlers) health(c *gin.Context) {
	if err := h.deps.Store.Ping(c.Request.Context()); err != nil {
		h.deps.Logger.Error("health check failed", logging.Err(err))
		c.JSON(http.StatusServiceUnavailable, envelope{
			Success:   false,
			Data:      gin.H{"status": "unhealthy", "service": "ACC API"},
			Error:     "task store unavailable",
			Timestamp: h.resp.stamp(),
		})
		return
	}
	h.resp.ok(c, http.StatusOK, gin.H{"status": "healthy", "service": "ACC API"})
}

// readJSONObject decodes the request body as a JSON object, keeping each
// field raw so presence and type can be checked separately. It writes the
// 400 response itself and reports whether decoding succeeded.
func (h *handlers) readJSONObject(c *gin.Context) (map[string]json.RawMessage, bool) {
	if c.ContentType() != gin.MIMEJSON {
		h.resp.fail(c, http.StatusBadRequest, "Request must be JSON")
		return nil, false
	}

	raw, err := c.GetRawData()
	if err != nil {
		h.resp.fail(c, http.StatusBadRequest, "Could not read request body")
		return nil, false
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		h.resp.fail(c, http.StatusBadRequest, "Request body must be a JSON object")
		return nil, false
	}
	return body, true
}

// stringField extracts a string field. wellTyped is false when the field
// is present but not a string.
func stringField(body map[string]json.RawMessage, name string) (value string, present, wellTyped bool) {
	raw, ok := body[name]
	if !ok {
		return "", false, true
	}
	if err := json.Unmarshal(raw, &value); err != nil || isNull(raw) {
		return "", true, false
	}
	return value, true, true
}

func mustBeString(name string) string {
	return fmt.Sprintf("Field '%s' must be a string", name)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func (h *handlers) parse(c *gin.Context) {
	body, ok := h.readJSONObject(c)
	if !ok {
		return
	}

	text, present, wellTyped := stringField(body, "text")
	if !present {
		h.resp.fail(c, http.StatusBadRequest, "Missing required field: 'text'")
		return
	}
	if !wellTyped {
		h.resp.fail(c, http.StatusBadRequest, mustBeString("text"))
		return
	}

	h.resp.ok(c, http.StatusOK, h.deps.Parser.Parse(text))
}

func (h *handlers) parseBatch(c *gin.Context) {
	body, ok := h.readJSONObject(c)
	if !ok {
		return
	}

	raw, present := body["texts"]
	if !present {
		h.resp.fail(c, http.StatusBadRequest, "Missing required field: 'texts'")
		return
	}

	var texts []any
	if err := json.Unmarshal(raw, &texts); err != nil || isNull(raw) {
		h.resp.fail(c, http.StatusBadRequest, "Field 'texts' must be a list")
		return
	}
	if len(texts) > h.deps.MaxBatch {
		h.resp.fail(c, http.StatusBadRequest, fmt.Sprintf("Maximum batch size is %d texts", h.deps.MaxBatch))
		return
	}

	results, err := h.deps.Parser.ParseBatch(c.Request.Context(), texts, h.deps.Workers)
	if err != nil {
		h.deps.Logger.Warn("batch parse interrupted", logging.Err(err), logging.Int("texts", len(texts)))
		h.resp.fail(c, http.StatusServiceUnavailable, "Batch parse interrupted")
		return
	}

	h.resp.ok(c, http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

func (h *handlers) createTask(c *gin.Context) {
	body, ok := h.readJSONObject(c)
	if !ok {
		return
	}

	title, present, wellTyped := stringField(body, "title")
	if !present {
		h.resp.fail(c, http.StatusBadRequest, "Missing required field: 'title'")
		return
	}
	if !wellTyped {
		h.resp.fail(c, http.StatusBadRequest, mustBeString("title"))
		return
	}
	description, _, wellTyped := stringField(body, "description")
	if !wellTyped {
		h.resp.fail(c, http.StatusBadRequest, mustBeString("description"))
		return
	}
	text, _, wellTyped := stringField(body, "text")
	if !wellTyped {
		h.resp.fail(c, http.StatusBadRequest, mustBeString("text"))
		return
	}

	task := &store.Task{Title: title, Description: description}

	if text != "" {
		result := h.deps.Parser.Parse(text)
		task.OriginalText = text
		task.Courses = result.Courses
		task.Keywords = result.Keywords
		task.DueDate = result.ResolvedDatetime
		parsed, err := marshalParsed(result)
		if err != nil {
			h.deps.Logger.Warn("parsed data not stored", logging.Err(err),
				logging.String("request_id", c.GetString(requestIDKey)))
		} else {
			task.ParsedData = parsed
		}
	}

	if _, err := h.deps.Store.Create(c.Request.Context(), task); err != nil {
		h.storeError(c, "creating task", err)
		return
	}

	h.resp.ok(c, http.StatusCreated, task)
}

func (h *handlers) listTasks(c *gin.Context) {
	status := store.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		h.resp.fail(c, http.StatusBadRequest, "Invalid status (must be pending, completed, or cancelled)")
		return
	}

	tasks, err := h.deps.Store.List(c.Request.Context(), status)
	if err != nil {
		h.storeError(c, "listing tasks", err)
		return
	}

	h.resp.ok(c, http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}

func (h *handlers) getTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	task, err := h.deps.Store.Get(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, "getting task", err)
		return
	}
	h.resp.ok(c, http.StatusOK, task)
}

func (h *handlers) updateTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	body, ok := h.readJSONObject(c)
	if !ok {
		return
	}

	var u store.TaskUpdate
	for _, name := range []string{"title", "description", "status"} {
		v, present, wellTyped := stringField(body, name)
		if !wellTyped {
			h.resp.fail(c, http.StatusBadRequest, mustBeString(name))
			return
		}
		if !present {
			continue
		}
		switch name {
		case "title":
			u.Title = &v
		case "description":
			u.Description = &v
		case "status":
			s := store.Status(v)
			u.Status = &s
		}
	}

	if raw, present := body["due_date"]; present {
		if isNull(raw) {
			u.ClearDueDate = true
		} else {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				h.resp.fail(c, http.StatusBadRequest, "Field 'due_date' must be an RFC 3339 string or null")
				return
			}
			due, err := time.Parse(time.RFC3339, s)
			if err != nil {
				h.resp.fail(c, http.StatusBadRequest, "Field 'due_date' must be an RFC 3339 string or null")
				return
			}
			u.DueDate = &due
		}
	}

	if err := h.deps.Store.Update(c.Request.Context(), id, u); err != nil {
		h.storeError(c, "updating task", err)
		return
	}
	h.resp.ok(c, http.StatusOK, gin.H{"id": id})
}

func (h *handlers) deleteTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	if err := h.deps.Store.Delete(c.Request.Context(), id); err != nil {
		h.storeError(c, "deleting task", err)
		return
	}
	h.resp.ok(c, http.StatusOK, gin.H{"id": id})
}

func (h *handlers) completeTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	if err := h.deps.Store.Complete(c.Request.Context(), id); err != nil {
		h.storeError(c, "completing task", err)
		return
	}
	h.resp.ok(c, http.StatusOK, gin.H{"id": id, "status": store.StatusCompleted})
}

func (h *handlers) taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.resp.fail(c, http.StatusBadRequest, "Invalid task id")
		return 0, false
	}
	return id, true
}

// storeError maps store errors onto status codes.
func (h *handlers) storeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.resp.fail(c, http.StatusNotFound, "Task not found")
	case errors.Is(err, store.ErrNoChanges):
		h.resp.fail(c, http.StatusBadRequest, "No fields to update")
	case errors.Is(err, store.ErrInvalidStatus):
		h.resp.fail(c, http.StatusBadRequest, "Invalid status (must be pending, completed, or cancelled)")
	case errors.Is(err, store.ErrTitleRequired):
		h.resp.fail(c, http.StatusBadRequest, "Title must not be empty")
	default:
		h.deps.Logger.Error("task store error", logging.String("op", op), logging.Err(err),
			logging.String("request_id", c.GetString(requestIDKey)))
		h.resp.fail(c, http.StatusInternalServerError, "Internal server error")
	}
}

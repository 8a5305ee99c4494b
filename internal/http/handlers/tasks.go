package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid task id")
		return 0, false
	}
	return id, true
}

func (h *Handler) ListTasks(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	tasks, err := h.Tasks.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// InitiateTask starts the completion timer; the reward is credited by a
// later completion-status check.
func (h *Handler) InitiateTask(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}
	completion, err := h.Tasks.Initiate(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"task_id":         id,
		"completion_time": completion.CompletionTime,
	})
}

func (h *Handler) TaskCompletionStatus(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}
	st, err := h.Tasks.CheckCompletion(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

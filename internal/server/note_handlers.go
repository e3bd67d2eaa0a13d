package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/priorityhuddle/huddle/internal/notes"
	"github.com/priorityhuddle/huddle/internal/presence"
	"github.com/priorityhuddle/huddle/internal/realtime"
)

type noteCreateRequestPayload struct {
	Content   string   `json:"content"`
	Color     string   `json:"color"`
	PositionX *float64 `json:"positionX"`
	PositionY *float64 `json:"positionY"`
	Width     *float64 `json:"width"`
	Height    *float64 `json:"height"`
}

func (h *httpHandler) handleNoteCreate(c *gin.Context) {
	var request noteCreateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.notes.Create(c.Request.Context(), h.actorID(c), notes.CreateInput{
		BoardID:   c.Param("boardId"),
		Content:   request.Content,
		Color:     request.Color,
		PositionX: request.PositionX,
		PositionY: request.PositionY,
		Width:     request.Width,
		Height:    request.Height,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.notes.Snapshot(c.Request.Context(), note))
}

func (h *httpHandler) handleNoteList(c *gin.Context) {
	listed, err := h.notes.List(c.Request.Context(), h.actorID(c), c.Param("boardId"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	snapshots := make([]realtime.NoteSnapshot, 0, len(listed))
	for _, note := range listed {
		snapshots = append(snapshots, h.notes.Snapshot(c.Request.Context(), note))
	}
	c.JSON(http.StatusOK, gin.H{"notes": snapshots})
}

type noteContentRequestPayload struct {
	Content *string `json:"content"`
	Color   *string `json:"color"`
}

func (h *httpHandler) handleNoteContent(c *gin.Context) {
	var request noteContentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if request.Content == nil && request.Color == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.notes.UpdateContent(c.Request.Context(), h.actorID(c), c.Param("noteId"), notes.ContentInput{
		Content: request.Content,
		Color:   request.Color,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.notes.Snapshot(c.Request.Context(), note))
}

type notePositionRequestPayload struct {
	PositionX *float64 `json:"positionX"`
	PositionY *float64 `json:"positionY"`
}

func (h *httpHandler) handleNotePosition(c *gin.Context) {
	var request notePositionRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.PositionX == nil || request.PositionY == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.notes.UpdatePosition(c.Request.Context(), h.actorID(c), c.Param("noteId"), *request.PositionX, *request.PositionY)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.notes.Snapshot(c.Request.Context(), note))
}

type noteSizeRequestPayload struct {
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

func (h *httpHandler) handleNoteSize(c *gin.Context) {
	var request noteSizeRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Width == nil || request.Height == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.notes.UpdateSize(c.Request.Context(), h.actorID(c), c.Param("noteId"), *request.Width, *request.Height)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.notes.Snapshot(c.Request.Context(), note))
}

type noteVoteRequestPayload struct {
	Direction string `json:"direction"`
}

func (h *httpHandler) handleNoteVote(c *gin.Context) {
	var request noteVoteRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.notes.Vote(c.Request.Context(), h.actorID(c), c.Param("noteId"), strings.ToUpper(strings.TrimSpace(request.Direction)))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.notes.Snapshot(c.Request.Context(), note))
}

func (h *httpHandler) handleNoteDelete(c *gin.Context) {
	noteID := c.Param("noteId")
	if err := h.notes.Delete(c.Request.Context(), h.actorID(c), noteID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, realtime.NewNoteDeletion(noteID))
}

type notePresenceRequestPayload struct {
	BoardID string `json:"boardId"`
	Status  string `json:"status"`
}

// handleNotePresence records the focus transition and broadcasts it. The
// transition is idempotent: repeating a FOCUS or blurring an unfocused note
// changes nothing and broadcasts nothing.
func (h *httpHandler) handleNotePresence(c *gin.Context) {
	var request notePresenceRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	status := strings.ToUpper(strings.TrimSpace(request.Status))
	if status != realtime.StatusFocus && status != realtime.StatusBlur {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
		return
	}

	actorID := h.actorID(c)
	board, err := h.boards.RequireMembership(c.Request.Context(), actorID, request.BoardID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	noteID := c.Param("noteId")
	changed := false
	if status == realtime.StatusFocus {
		changed = h.presence.Focus(board.ID, actorID, noteID)
	} else {
		changed = h.presence.Blur(board.ID, actorID, noteID)
	}
	if changed {
		account, err := h.users.GetByID(c.Request.Context(), actorID)
		if err != nil {
			h.respondServiceError(c, err)
			return
		}
		h.broadcaster.Announce(board.ID, noteID, presence.Editor{
			UserID:   account.ID,
			Username: account.Username,
			Email:    account.Email,
		}, status)
	}
	c.JSON(http.StatusOK, gin.H{"noteId": noteID, "status": status, "changed": changed})
}

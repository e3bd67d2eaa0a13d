package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/priorityhuddle/huddle/internal/boards"
)

type boardPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Objective   string `json:"objective"`
	TimeHorizon string `json:"timeHorizon"`
	Category    string `json:"category"`
	CreatorID   string `json:"creatorId"`

	AIWeight        float64 `json:"aiWeight"`
	EnableAIScoring bool    `json:"enableAIScoring"`
	EnableVoting    bool    `json:"enableVoting"`
	AllowDownvotes  bool    `json:"allowDownvotes"`

	RequireOwnerApprovalForDelete bool   `json:"requireOwnerApprovalForDelete"`
	DefaultNoteColor              string `json:"defaultNoteColor"`
	SnapToGrid                    bool   `json:"snapToGrid"`
	BackgroundTheme               string `json:"backgroundTheme"`
	ShowLeaderboardByDefault      bool   `json:"showLeaderboardByDefault"`

	IsArchived bool      `json:"isArchived"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toBoardPayload(board boards.Board) boardPayload {
	return boardPayload{
		ID:                            board.ID,
		Title:                         board.Title,
		Objective:                     board.Objective,
		TimeHorizon:                   board.TimeHorizon,
		Category:                      board.Category,
		CreatorID:                     board.CreatorID,
		AIWeight:                      board.AIWeight,
		EnableAIScoring:               board.EnableAIScoring,
		EnableVoting:                  board.EnableVoting,
		AllowDownvotes:                board.AllowDownvotes,
		RequireOwnerApprovalForDelete: board.RequireOwnerApprovalForDelete,
		DefaultNoteColor:              board.DefaultNoteColor,
		SnapToGrid:                    board.SnapToGrid,
		BackgroundTheme:               board.BackgroundTheme,
		ShowLeaderboardByDefault:      board.ShowLeaderboardByDefault,
		IsArchived:                    board.IsArchived,
		CreatedAt:                     board.CreatedAt,
	}
}

type boardCreateRequestPayload struct {
	Title                         string   `json:"title"`
	Objective                     string   `json:"objective"`
	TimeHorizon                   string   `json:"timeHorizon"`
	Category                      string   `json:"category"`
	AIWeight                      *float64 `json:"aiWeight"`
	EnableAIScoring               *bool    `json:"enableAIScoring"`
	EnableVoting                  *bool    `json:"enableVoting"`
	AllowDownvotes                *bool    `json:"allowDownvotes"`
	RequireOwnerApprovalForDelete *bool    `json:"requireOwnerApprovalForDelete"`
}

func (h *httpHandler) handleBoardCreate(c *gin.Context) {
	var request boardCreateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	board, err := h.boards.Create(c.Request.Context(), h.actorID(c), boards.CreateInput{
		Title:                         request.Title,
		Objective:                     request.Objective,
		TimeHorizon:                   request.TimeHorizon,
		Category:                      request.Category,
		AIWeight:                      request.AIWeight,
		EnableAIScoring:               request.EnableAIScoring,
		EnableVoting:                  request.EnableVoting,
		AllowDownvotes:                request.AllowDownvotes,
		RequireOwnerApprovalForDelete: request.RequireOwnerApprovalForDelete,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBoardPayload(board))
}

func (h *httpHandler) handleBoardList(c *gin.Context) {
	mine, err := h.boards.ListMine(c.Request.Context(), h.actorID(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	payloads := make([]boardPayload, 0, len(mine))
	for _, board := range mine {
		payloads = append(payloads, toBoardPayload(board))
	}
	c.JSON(http.StatusOK, gin.H{"boards": payloads})
}

func (h *httpHandler) handleBoardGet(c *gin.Context) {
	board, err := h.boards.Get(c.Request.Context(), h.actorID(c), c.Param("boardId"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBoardPayload(board))
}

type collaboratorRequestPayload struct {
	Username string `json:"username"`
}

func (h *httpHandler) handleAddCollaborator(c *gin.Context) {
	var request collaboratorRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Username) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	invitee, err := h.users.GetByUsername(c.Request.Context(), request.Username)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	if err := h.boards.AddCollaborator(c.Request.Context(), h.actorID(c), c.Param("boardId"), invitee.ID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collaborator": invitee.Public()})
}

type boardSettingsRequestPayload struct {
	Title                         *string  `json:"title"`
	Objective                     *string  `json:"objective"`
	TimeHorizon                   *string  `json:"timeHorizon"`
	Category                      *string  `json:"category"`
	AIWeight                      *float64 `json:"aiWeight"`
	EnableAIScoring               *bool    `json:"enableAIScoring"`
	EnableVoting                  *bool    `json:"enableVoting"`
	AllowDownvotes                *bool    `json:"allowDownvotes"`
	RequireOwnerApprovalForDelete *bool    `json:"requireOwnerApprovalForDelete"`
	DefaultNoteColor              *string  `json:"defaultNoteColor"`
	SnapToGrid                    *bool    `json:"snapToGrid"`
	BackgroundTheme               *string  `json:"backgroundTheme"`
	ShowLeaderboardByDefault      *bool    `json:"showLeaderboardByDefault"`
}

func (h *httpHandler) handleBoardSettings(c *gin.Context) {
	var request boardSettingsRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	board, err := h.boards.UpdateSettings(c.Request.Context(), h.actorID(c), c.Param("boardId"), boards.SettingsInput{
		Title:                         request.Title,
		Objective:                     request.Objective,
		TimeHorizon:                   request.TimeHorizon,
		Category:                      request.Category,
		AIWeight:                      request.AIWeight,
		EnableAIScoring:               request.EnableAIScoring,
		EnableVoting:                  request.EnableVoting,
		AllowDownvotes:                request.AllowDownvotes,
		RequireOwnerApprovalForDelete: request.RequireOwnerApprovalForDelete,
		DefaultNoteColor:              request.DefaultNoteColor,
		SnapToGrid:                    request.SnapToGrid,
		BackgroundTheme:               request.BackgroundTheme,
		ShowLeaderboardByDefault:      request.ShowLeaderboardByDefault,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBoardPayload(board))
}

func (h *httpHandler) handleBoardArchive(c *gin.Context) {
	board, err := h.boards.Archive(c.Request.Context(), h.actorID(c), c.Param("boardId"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBoardPayload(board))
}

// handleBoardDelete removes a board and everything on it. Notes go first so
// a crash between the two deletes leaves an empty board, never orphans.
func (h *httpHandler) handleBoardDelete(c *gin.Context) {
	board, err := h.boards.RequireOwner(c.Request.Context(), h.actorID(c), c.Param("boardId"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	if err := h.notes.PurgeBoard(c.Request.Context(), board.ID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	if err := h.boards.Remove(c.Request.Context(), board.ID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": board.ID})
}

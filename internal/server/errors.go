package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/priorityhuddle/huddle/internal/auth"
	"github.com/priorityhuddle/huddle/internal/boards"
	"github.com/priorityhuddle/huddle/internal/notes"
	"github.com/priorityhuddle/huddle/internal/users"
)

type errorCoder interface {
	Code() string
}

// respondServiceError translates service sentinels to HTTP statuses and
// surfaces the operation.reason code as the response body.
func (h *httpHandler) respondServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, users.ErrNotFound),
		errors.Is(err, boards.ErrNotFound),
		errors.Is(err, notes.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, users.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, boards.ErrNotAuthorized),
		errors.Is(err, notes.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, users.ErrEmailTaken),
		errors.Is(err, users.ErrUsernameTaken),
		errors.Is(err, boards.ErrAlreadyCollaborator),
		errors.Is(err, boards.ErrCollaboratorIsOwner):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, notes.ErrBoardArchived),
		errors.Is(err, notes.ErrVotingDisabled),
		errors.Is(err, notes.ErrDownvotesDisabled),
		errors.Is(err, notes.ErrInvalidVote):
		status = http.StatusUnprocessableEntity
	}

	code := "internal_error"
	var coded errorCoder
	if errors.As(err, &coded) {
		code = coded.Code()
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("code", code), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": code})
}

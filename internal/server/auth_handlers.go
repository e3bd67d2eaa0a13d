package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/priorityhuddle/huddle/internal/users"
)

type registerRequestPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponsePayload struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	TokenType   string       `json:"token_type"`
	User        users.Public `json:"user"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	account, err := h.users.Register(c.Request.Context(), request.Username, request.Email, request.Password)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.respondWithToken(c, account)
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	account, err := h.users.Login(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.respondWithToken(c, account)
}

func (h *httpHandler) respondWithToken(c *gin.Context, account users.User) {
	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), account.ID)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	c.JSON(http.StatusOK, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		User:        account.Public(),
	})
}

func (h *httpHandler) handleMe(c *gin.Context) {
	account, err := h.users.GetByID(c.Request.Context(), h.actorID(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, account.Public())
}

func (h *httpHandler) handleUserSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	matches, err := h.users.Search(c.Request.Context(), query, 10)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	results := make([]users.Public, 0, len(matches))
	for _, match := range matches {
		results = append(results, match.Public())
	}
	c.JSON(http.StatusOK, gin.H{"users": results})
}

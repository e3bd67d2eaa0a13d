package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/priorityhuddle/huddle/internal/boards"
	"github.com/priorityhuddle/huddle/internal/notes"
	"github.com/priorityhuddle/huddle/internal/presence"
	"github.com/priorityhuddle/huddle/internal/realtime"
	"github.com/priorityhuddle/huddle/internal/users"
)

const userIDContextKey = "huddle_user_id"

var (
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingUsersService  = errors.New("users service dependency required")
	errMissingBoardsService = errors.New("boards service dependency required")
	errMissingNotesService  = errors.New("notes service dependency required")
	errMissingDispatcher    = errors.New("realtime dispatcher dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// TokenManager issues and validates the bearer tokens carried by every
// protected route and by the stream handshake.
type TokenManager interface {
	IssueToken(ctx context.Context, userID string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

type Dependencies struct {
	TokenManager  TokenManager
	UsersService  *users.Service
	BoardsService *boards.Service
	NotesService  *notes.Service
	Realtime      *realtime.Dispatcher
	Logger        *zap.Logger
}

// NewHTTPHandler wires the REST surface and the board event stream.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.BoardsService == nil {
		return nil, errMissingBoardsService
	}
	if deps.NotesService == nil {
		return nil, errMissingNotesService
	}
	if deps.Realtime == nil {
		return nil, errMissingDispatcher
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:      deps.TokenManager,
		users:       deps.UsersService,
		boards:      deps.BoardsService,
		notes:       deps.NotesService,
		realtime:    deps.Realtime,
		presence:    presence.NewRegistry(),
		broadcaster: presence.NewBroadcaster(deps.Realtime),
		logger:      logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/me", handler.handleMe)
	protected.GET("/users/search", handler.handleUserSearch)

	protected.POST("/boards", handler.handleBoardCreate)
	protected.GET("/boards", handler.handleBoardList)
	protected.GET("/boards/:boardId", handler.handleBoardGet)
	protected.POST("/boards/:boardId/collaborators", handler.handleAddCollaborator)
	protected.PATCH("/boards/:boardId/settings", handler.handleBoardSettings)
	protected.POST("/boards/:boardId/archive", handler.handleBoardArchive)
	protected.DELETE("/boards/:boardId", handler.handleBoardDelete)

	protected.POST("/boards/:boardId/notes", handler.handleNoteCreate)
	protected.GET("/boards/:boardId/notes", handler.handleNoteList)
	protected.PATCH("/notes/:noteId", handler.handleNoteContent)
	protected.PATCH("/notes/:noteId/position", handler.handleNotePosition)
	protected.PATCH("/notes/:noteId/size", handler.handleNoteSize)
	protected.POST("/notes/:noteId/vote", handler.handleNoteVote)
	protected.DELETE("/notes/:noteId", handler.handleNoteDelete)
	protected.POST("/notes/:noteId/presence", handler.handleNotePresence)

	// The stream authenticates through the access_token query parameter
	// because EventSource cannot set headers.
	router.GET("/boards/:boardId/stream", handler.handleBoardStream)

	return router, nil
}

type httpHandler struct {
	tokens      TokenManager
	users       *users.Service
	boards      *boards.Service
	notes       *notes.Service
	realtime    *realtime.Dispatcher
	presence    *presence.Registry
	broadcaster *presence.Broadcaster
	logger      *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

func (h *httpHandler) actorID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}

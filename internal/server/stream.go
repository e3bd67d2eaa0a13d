package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/priorityhuddle/huddle/internal/presence"
	"github.com/priorityhuddle/huddle/internal/realtime"
)

const (
	streamEventHeartbeat = "heartbeat"
	streamHeartbeatEvery = 25 * time.Second
)

// handleBoardStream is the subscription endpoint: one SSE connection per
// board per tab. Authentication and membership are settled before the first
// byte of the stream; afterwards the connection only ever receives events
// for this board.
func (h *httpHandler) handleBoardStream(c *gin.Context) {
	token := strings.TrimSpace(c.Query("access_token"))
	if token == "" {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	userID, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("stream token validation failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	board, err := h.boards.RequireMembership(c.Request.Context(), userID, c.Param("boardId"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	ctx := c.Request.Context()
	stream, cancel := h.realtime.Subscribe(ctx, realtime.Subscription{UserID: userID, BoardID: board.ID})
	defer cancel()
	defer h.blurOnDisconnect(board.ID, userID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(streamHeartbeatEvery)
	defer heartbeat.Stop()

	c.SSEvent(streamEventHeartbeat, "{}")
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			c.SSEvent(streamEventHeartbeat, "{}")
			c.Writer.Flush()
		case envelope, ok := <-stream:
			if !ok {
				return
			}
			name, data, err := encodeStreamEvent(envelope)
			if err != nil {
				h.logger.Error("failed to encode stream event", zap.Error(err))
				continue
			}
			c.SSEvent(name, data)
			c.Writer.Flush()
		}
	}
}

// blurOnDisconnect turns a dropped connection into explicit blur events so
// other clients never render a ghost editor.
func (h *httpHandler) blurOnDisconnect(boardID, userID string) {
	noteIDs := h.presence.Disconnect(boardID, userID)
	if len(noteIDs) == 0 {
		return
	}
	account, err := h.users.GetByID(context.Background(), userID)
	if err != nil {
		h.logger.Warn("disconnect blur user lookup failed", zap.Error(err), zap.String("user_id", userID))
		return
	}
	editor := presence.Editor{UserID: account.ID, Username: account.Username, Email: account.Email}
	for _, noteID := range noteIDs {
		h.broadcaster.Announce(boardID, noteID, editor, realtime.StatusBlur)
	}
}

func encodeStreamEvent(envelope realtime.Envelope) (string, string, error) {
	var payload interface{}
	switch {
	case envelope.Note != nil:
		payload = envelope.Note
	case envelope.Deletion != nil:
		payload = envelope.Deletion
	case envelope.Presence != nil:
		payload = envelope.Presence
	default:
		payload = struct{}{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}
	return envelope.Kind, string(data), nil
}

package integration_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/priorityhuddle/huddle/internal/auth"
	"github.com/priorityhuddle/huddle/internal/boards"
	"github.com/priorityhuddle/huddle/internal/ident"
	"github.com/priorityhuddle/huddle/internal/notes"
	"github.com/priorityhuddle/huddle/internal/realtime"
	"github.com/priorityhuddle/huddle/internal/scoring"
	"github.com/priorityhuddle/huddle/internal/server"
	"github.com/priorityhuddle/huddle/internal/users"
)

const (
	integrationSigningSecret = "integration-secret"
	jsonContentType          = "application/json"
	eventWaitWindow          = 3 * time.Second
)

func TestBoardCollaborationFlow(testContext *testing.T) {
	gin.SetMode(gin.TestMode)
	apiServer := startAPIServer(testContext)

	ownerToken, _ := registerAccount(testContext, apiServer, "maya", "maya@example.com")
	memberToken, memberID := registerAccount(testContext, apiServer, "liam", "liam@example.com")

	sharedBoardID := createBoardOverHTTP(testContext, apiServer, ownerToken, "Launch Triage")
	inviteResponse := doJSON(testContext, apiServer, http.MethodPost, "/boards/"+sharedBoardID+"/collaborators", ownerToken, map[string]string{"username": "liam"})
	if inviteResponse.status != http.StatusOK {
		testContext.Fatalf("unexpected invite status: %d", inviteResponse.status)
	}
	privateBoardID := createBoardOverHTTP(testContext, apiServer, memberToken, "Liam Private")

	ownerStream := openEventStream(testContext, apiServer, sharedBoardID, ownerToken)
	memberStream := openEventStream(testContext, apiServer, sharedBoardID, memberToken)
	privateStream := openEventStream(testContext, apiServer, privateBoardID, memberToken)

	// A keyword-heavy note scores 0.7 under the rule classifier, and with no
	// votes on the board the priority is the weighted content score alone.
	createResponse := doJSON(testContext, apiServer, http.MethodPost, "/boards/"+sharedBoardID+"/notes", ownerToken, map[string]string{
		"content": "Payment checkout fails for returning customers",
	})
	if createResponse.status != http.StatusCreated {
		testContext.Fatalf("unexpected note create status: %d", createResponse.status)
	}
	noteID, _ := createResponse.body["id"].(string)
	if noteID == "" {
		testContext.Fatalf("note create response missing id: %v", createResponse.body)
	}
	assertCloseTo(testContext, createResponse.body, "aiContentScore", 0.7)
	assertCloseTo(testContext, createResponse.body, "aiPriorityScore", 0.49)

	for streamName, stream := range map[string]*eventStream{"owner": ownerStream, "member": memberStream} {
		eventName, payload := stream.nextEvent(testContext, eventWaitWindow)
		if eventName != realtime.KindNote {
			testContext.Fatalf("%s stream: expected note event, got %q", streamName, eventName)
		}
		if payload["id"] != noteID || payload["__typename"] != realtime.TypenameNote {
			testContext.Fatalf("%s stream: unexpected note payload: %v", streamName, payload)
		}
	}

	// The collaborator's upvote recomputes priority and fans out to every
	// shared-board subscriber.
	voteResponse := doJSON(testContext, apiServer, http.MethodPost, "/notes/"+noteID+"/vote", memberToken, map[string]string{"direction": "UP"})
	if voteResponse.status != http.StatusOK {
		testContext.Fatalf("unexpected vote status: %d", voteResponse.status)
	}
	for streamName, stream := range map[string]*eventStream{"owner": ownerStream, "member": memberStream} {
		eventName, payload := stream.nextEvent(testContext, eventWaitWindow)
		if eventName != realtime.KindNote {
			testContext.Fatalf("%s stream: expected note event after vote, got %q", streamName, eventName)
		}
		if payload["upvotes"] != float64(1) {
			testContext.Fatalf("%s stream: expected upvotes 1, got %v", streamName, payload["upvotes"])
		}
		assertCloseTo(testContext, payload, "aiPriorityScore", 0.79)
	}

	deleteResponse := doJSON(testContext, apiServer, http.MethodDelete, "/notes/"+noteID, ownerToken, nil)
	if deleteResponse.status != http.StatusOK {
		testContext.Fatalf("unexpected delete status: %d", deleteResponse.status)
	}
	for streamName, stream := range map[string]*eventStream{"owner": ownerStream, "member": memberStream} {
		eventName, payload := stream.nextEvent(testContext, eventWaitWindow)
		if eventName != realtime.KindNote {
			testContext.Fatalf("%s stream: expected deletion event, got %q", streamName, eventName)
		}
		if payload["__typename"] != realtime.TypenameNoteDeletion || payload["deleted"] != true || payload["id"] != noteID {
			testContext.Fatalf("%s stream: unexpected deletion payload: %v", streamName, payload)
		}
	}

	// The private board's stream must have stayed silent through all of the
	// shared-board traffic. Publishing to it now and reading exactly one
	// event proves nothing leaked in earlier.
	privateResponse := doJSON(testContext, apiServer, http.MethodPost, "/boards/"+privateBoardID+"/notes", memberToken, map[string]string{
		"content": "Draft retro agenda",
	})
	if privateResponse.status != http.StatusCreated {
		testContext.Fatalf("unexpected private note status: %d", privateResponse.status)
	}
	eventName, payload := privateStream.nextEvent(testContext, eventWaitWindow)
	if eventName != realtime.KindNote {
		testContext.Fatalf("private stream: expected note event, got %q", eventName)
	}
	if payload["id"] != privateResponse.body["id"] {
		testContext.Fatalf("private stream: expected only its own note, got %v", payload)
	}
	if creator, ok := payload["creator"].(map[string]interface{}); !ok || creator["id"] != memberID {
		testContext.Fatalf("private stream: unexpected creator on payload: %v", payload["creator"])
	}
}

type apiServer struct {
	httpServer *httptest.Server
}

func startAPIServer(testContext *testing.T) *apiServer {
	testContext.Helper()

	dsn := fmt.Sprintf("file:integration_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&users.User{}, &boards.Board{}, &boards.Collaborator{}, &notes.Note{}); err != nil {
		testContext.Fatalf("failed to migrate: %v", err)
	}

	idProvider := ident.NewUUIDProvider()
	userService, err := users.NewService(users.ServiceConfig{Database: db, IDProvider: idProvider, Logger: zap.NewNop()})
	if err != nil {
		testContext.Fatalf("failed to build user service: %v", err)
	}
	boardService, err := boards.NewService(boards.ServiceConfig{Database: db, IDProvider: idProvider, DefaultAIWeight: 0.7, Logger: zap.NewNop()})
	if err != nil {
		testContext.Fatalf("failed to build board service: %v", err)
	}
	dispatcher := realtime.NewDispatcher()
	noteService, err := notes.NewService(notes.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Boards:     boardService,
		Users:      userService,
		Engine:     scoring.NewEngine(nil, zap.NewNop()),
		Publisher:  dispatcher,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build note service: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager: auth.NewTokenIssuer(auth.TokenIssuerConfig{
			SigningSecret: []byte(integrationSigningSecret),
			TokenTTL:      time.Hour,
		}),
		UsersService:  userService,
		BoardsService: boardService,
		NotesService:  noteService,
		Realtime:      dispatcher,
		Logger:        zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}

	httpServer := httptest.NewServer(handler)
	testContext.Cleanup(httpServer.Close)
	return &apiServer{httpServer: httpServer}
}

type jsonResponse struct {
	status int
	body   map[string]interface{}
}

func doJSON(testContext *testing.T, apiServer *apiServer, method, path, token string, payload interface{}) jsonResponse {
	testContext.Helper()
	buffer := bytes.NewBuffer(nil)
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			testContext.Fatalf("failed to marshal payload: %v", err)
		}
		buffer = bytes.NewBuffer(encoded)
	}
	request, err := http.NewRequest(method, apiServer.httpServer.URL+path, buffer)
	if err != nil {
		testContext.Fatalf("failed to construct request: %v", err)
	}
	request.Header.Set("Content-Type", jsonContentType)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		testContext.Fatalf("request failed: %v", err)
	}
	defer response.Body.Close()
	decoded := map[string]interface{}{}
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		testContext.Fatalf("failed to decode response body: %v", err)
	}
	return jsonResponse{status: response.StatusCode, body: decoded}
}

func registerAccount(testContext *testing.T, apiServer *apiServer, username, email string) (token, userID string) {
	testContext.Helper()
	response := doJSON(testContext, apiServer, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": "correct-horse-battery",
	})
	if response.status != http.StatusOK {
		testContext.Fatalf("unexpected register status: %d (%v)", response.status, response.body)
	}
	token, _ = response.body["access_token"].(string)
	user, _ := response.body["user"].(map[string]interface{})
	userID, _ = user["id"].(string)
	if token == "" || userID == "" {
		testContext.Fatalf("register response missing token or user id: %v", response.body)
	}
	return token, userID
}

func createBoardOverHTTP(testContext *testing.T, apiServer *apiServer, token, title string) string {
	testContext.Helper()
	response := doJSON(testContext, apiServer, http.MethodPost, "/boards", token, map[string]string{"title": title})
	if response.status != http.StatusCreated {
		testContext.Fatalf("unexpected board create status: %d (%v)", response.status, response.body)
	}
	boardID, _ := response.body["id"].(string)
	if boardID == "" {
		testContext.Fatalf("board create response missing id: %v", response.body)
	}
	return boardID
}

func assertCloseTo(testContext *testing.T, payload map[string]interface{}, field string, expected float64) {
	testContext.Helper()
	value, ok := payload[field].(float64)
	if !ok {
		testContext.Fatalf("expected numeric %s, got %v", field, payload[field])
	}
	if math.Abs(value-expected) > 0.001 {
		testContext.Fatalf("expected %s near %v, got %v", field, expected, value)
	}
}

type eventStream struct {
	reader *bufio.Reader
}

func openEventStream(testContext *testing.T, apiServer *apiServer, boardID, token string) *eventStream {
	testContext.Helper()
	request, err := http.NewRequest(http.MethodGet, apiServer.httpServer.URL+"/boards/"+boardID+"/stream?access_token="+token, http.NoBody)
	if err != nil {
		testContext.Fatalf("failed to construct stream request: %v", err)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		testContext.Fatalf("failed to open stream: %v", err)
	}
	testContext.Cleanup(func() {
		_ = response.Body.Close()
	})
	if response.StatusCode != http.StatusOK {
		testContext.Fatalf("unexpected stream status: %d", response.StatusCode)
	}
	return &eventStream{reader: bufio.NewReader(response.Body)}
}

// nextEvent reads SSE frames until a non-heartbeat event arrives, returning
// its name and decoded data payload.
func (stream *eventStream) nextEvent(testContext *testing.T, timeout time.Duration) (string, map[string]interface{}) {
	testContext.Helper()
	type readResult struct {
		line string
		err  error
	}
	deadline := time.After(timeout)
	currentEventType := ""
	for {
		resultCh := make(chan readResult, 1)
		go func() {
			line, err := stream.reader.ReadString('\n')
			resultCh <- readResult{line: line, err: err}
		}()
		select {
		case <-deadline:
			testContext.Fatal("timed out waiting for stream event")
		case result := <-resultCh:
			if result.err != nil {
				testContext.Fatalf("failed to read stream: %v", result.err)
			}
			line := strings.TrimSpace(result.line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "event:") {
				currentEventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			if currentEventType == "" || currentEventType == "heartbeat" {
				continue
			}
			dataJSON := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			payload := map[string]interface{}{}
			if err := json.Unmarshal([]byte(dataJSON), &payload); err != nil {
				testContext.Fatalf("failed to decode event payload %q: %v", dataJSON, err)
			}
			return currentEventType, payload
		}
	}
}

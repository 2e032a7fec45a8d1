package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"live-auction/internal/repository"
	"live-auction/internal/server"
	"live-auction/services/bidding/helpers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// SetupTestRouter initializes the router with an in-memory store for integration testing.
func SetupTestRouter() (*gin.Engine, *repository.MemoryRepo) {
	gin.SetMode(gin.TestMode)
	repo := repository.NewMemoryRepo()
	router := server.SetupRouter(server.NewServices(repo, 30*time.Second))
	return router, repo
}

// ExecuteRequestAndParse executes an HTTP request on the given router and
// returns the response envelope
func ExecuteRequestAndParse(t *testing.T, router http.Handler, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// Data returns the envelope's data object
func Data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", resp)
	return data
}

// Register logs a session into room and returns its id
func Register(t *testing.T, router http.Handler, room, phone, role string) string {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/rooms/"+room+"/audience",
		map[string]any{"phone": phone, "role": role})
	require.Equal(t, http.StatusCreated, w.Code, resp)
	return Data(t, resp)["sessionId"].(string)
}

// StartRound opens a round as host
func StartRound(t *testing.T, router http.Handler, room, host string, req helpers.StartAuctionRequest) {
	t.Helper()
	req.ActorSessionID = host
	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/rooms/"+room+"/auction/start", req)
	require.Equal(t, http.StatusOK, w.Code, resp)
}

// Package testhelpers provides common utilities for testing the chat relay
// service: spinning up test servers, dialing WebSocket connections, and
// exchanging JSON frames with deadlines and descriptive failures.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestOrigin is the Origin header test connections present; the test
// configuration allows all origins.
const TestOrigin = "http://localhost:8080"

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// executed.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("Failed to create %s request for %s: %v", method, url, err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to execute %s request for %s: %v", method, url, err)
	}
	return resp
}

// WebSocketURL converts a test server's base URL into its ws:// endpoint.
func WebSocketURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// DialWebSocket connects to the test server's WebSocket endpoint with the
// test origin and registers cleanup of the connection.
func DialWebSocket(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	header := http.Header{"Origin": []string{TestOrigin}}
	conn, resp, err := websocket.DefaultDialer.Dial(WebSocketURL(ts), header)
	if err != nil {
		t.Fatalf("Failed to dial WebSocket endpoint: %v", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendFrame marshals and writes one JSON frame.
func SendFrame(t *testing.T, conn *websocket.Conn, frame any) {
	t.Helper()

	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("Failed to marshal frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
}

// ReadFrameOfType reads frames until one with the wanted type arrives,
// skipping unrelated frames, or fails after a 5-second deadline.
func ReadFrameOfType(t *testing.T, conn *websocket.Conn, frameType string) map[string]any {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	if err := conn.SetReadDeadline(deadline); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	for time.Now().Before(deadline) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed reading while waiting for %q frame: %v", frameType, err)
		}

		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("Received undecodable frame %q: %v", data, err)
		}
		if frame["type"] == frameType {
			return frame
		}
	}

	t.Fatalf("No %q frame received before deadline", frameType)
	return nil
}

package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/mcp-training/minesweeper/game/engine"
	"github.com/wricardo/mcp-training/minesweeper/game/records"
	"github.com/wricardo/mcp-training/minesweeper/game/service"
)

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

// sampleBoard is a 3x3 board with the mine at (0,0) after revealing (2,2)
func sampleBoard(t *testing.T) *engine.BoardView {
	t.Helper()
	eng, err := engine.NewGameEngine(3, 3, 1, engine.WithPlacer(engine.FixedPlacer{{Row: 0, Col: 0}}))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	if _, err := eng.ToggleMark(0, 0); err != nil {
		t.Fatalf("Failed to mark: %v", err)
	}
	if _, err := eng.Reveal(2, 2); err != nil {
		t.Fatalf("Failed to reveal: %v", err)
	}
	return eng.View()
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/", nil)

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	var response map[string]string
	if err := client.apiCall(context.Background(), "GET", "/api/health", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", response)
	}
}

func TestClient_apiCall_Errors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		client := NewClient("http://invalid-url-that-does-not-exist:9999", nil)
		if err := client.apiCall(context.Background(), "GET", "/api", nil, nil); err == nil {
			t.Error("Expected error for invalid URL")
		}
	})

	t.Run("error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
		}))
		defer server.Close()

		err := NewClient(server.URL, nil).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || err.Error() != "session not found" {
			t.Errorf("Expected API error message, got %v", err)
		}
	})

	t.Run("plain status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		err := NewClient(server.URL, nil).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "API error") {
			t.Errorf("Expected 'API error' in error message, got: %v", err)
		}
	})
}

func TestClient_createSession(t *testing.T) {
	var body map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(service.SessionInfo{
			ID:         "ab12",
			Player:     body["player"],
			Preset:     body["preset"],
			Difficulty: "Hard",
			Board:      &engine.BoardView{Rows: 2, Cols: 2, Phase: engine.Pending},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	result, err := client.handleCreateSession(context.Background(), callRequest("create_session", map[string]interface{}{
		"preset": "hard",
		"player": "Ann",
	}))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "ab12") || !strings.Contains(text, "Hard") {
		t.Errorf("Expected session ID and difficulty in result, got: %s", text)
	}
	if body["preset"] != "hard" || body["player"] != "Ann" {
		t.Errorf("Expected preset and player forwarded, got %v", body)
	}
	if len(result.Content) != 2 {
		t.Errorf("Expected text and JSON content, got %d blocks", len(result.Content))
	}
}

func TestClient_moveTools(t *testing.T) {
	var gotPath string
	var gotBody map[string]int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody = nil
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(service.ActionResult{
			Change: &engine.Change{
				Action:      engine.ActionReveal,
				Target:      engine.Position{Row: gotBody["row"], Col: gotBody["col"]},
				Changed:     true,
				Opened:      []engine.Position{{Row: 2, Col: 2}},
				PhaseBefore: engine.Pending,
				PhaseAfter:  engine.InProgress,
			},
			Board: &engine.BoardView{Rows: 3, Cols: 3, Phase: engine.InProgress},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	ctx := context.Background()

	tests := []struct {
		tool     string
		endpoint string
	}{
		{"reveal", "/api/sessions/ab12/reveal"},
		{"toggle_mark", "/api/sessions/ab12/mark"},
		{"chord", "/api/sessions/ab12/chord"},
	}
	endpoints := map[string]string{"reveal": "reveal", "toggle_mark": "mark", "chord": "chord"}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			// JSON numbers decode as float64
			handler := client.moveHandler(endpoints[tt.tool])
			result, err := handler(ctx, callRequest(tt.tool, map[string]interface{}{
				"session_id": "ab12",
				"row":        float64(2),
				"col":        float64(1),
			}))
			if err != nil {
				t.Fatalf("Tool failed: %v", err)
			}
			if result.IsError {
				t.Fatalf("Unexpected error result: %s", resultText(t, result))
			}
			if gotPath != tt.endpoint {
				t.Errorf("Expected %s, got %s", tt.endpoint, gotPath)
			}
			if gotBody["row"] != 2 || gotBody["col"] != 1 {
				t.Errorf("Expected row 2 col 1, got %v", gotBody)
			}
		})
	}

	t.Run("numeric strings and elapsed", func(t *testing.T) {
		result, _ := client.moveHandler("reveal")(ctx, callRequest("reveal", map[string]interface{}{
			"session_id":      "ab12",
			"row":             "0",
			"col":             "2",
			"elapsed_seconds": float64(33),
		}))
		if result.IsError {
			t.Fatalf("Unexpected error result: %s", resultText(t, result))
		}
		if gotBody["col"] != 2 || gotBody["elapsed_seconds"] != 33 {
			t.Errorf("Expected col 2 and elapsed 33, got %v", gotBody)
		}
	})

	t.Run("missing coordinates", func(t *testing.T) {
		gotPath = ""
		result, _ := client.moveHandler("reveal")(ctx, callRequest("reveal", map[string]interface{}{
			"session_id": "ab12",
			"row":        float64(1),
		}))
		if !result.IsError {
			t.Error("Expected error result without col")
		}
		if gotPath != "" {
			t.Error("Expected no API call without col")
		}
	})

	t.Run("missing session", func(t *testing.T) {
		result, _ := client.moveHandler("reveal")(ctx, callRequest("reveal", map[string]interface{}{
			"row": float64(1),
			"col": float64(1),
		}))
		if !result.IsError {
			t.Error("Expected error result without session_id")
		}
	})
}

func TestClient_leaderboard(t *testing.T) {
	var gotURI string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"difficulty": "easy",
			"count":      2,
			"records": []records.Record{
				{PlayerName: "Ann", Difficulty: "Easy", Seconds: 31},
				{PlayerName: "Bo", Difficulty: "Easy", Seconds: 45},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	result, err := client.handleLeaderboard(context.Background(), callRequest("leaderboard", map[string]interface{}{
		"difficulty": "easy",
		"limit":      float64(0),
	}))
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}

	if gotURI != "/api/leaderboard/easy?limit=0" {
		t.Errorf("Expected explicit limit 0, got %s", gotURI)
	}
	text := resultText(t, result)
	if !strings.Contains(text, " 1. Ann") || !strings.Contains(text, " 2. Bo") {
		t.Errorf("Expected ranked players, got: %s", text)
	}
}

func TestFormatBoard(t *testing.T) {
	text := formatBoard(sampleBoard(t))

	if !strings.Contains(text, "Phase: won") {
		t.Errorf("Expected won phase, got: %s", text)
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	grid := lines[len(lines)-3:]
	want := []string{
		" 0  F  1  .  ",
		" 1  1  1  .  ",
		" 2  .  .  .  ",
	}
	for i := range want {
		if grid[i] != want[i] {
			t.Errorf("Row %d: expected %q, got %q", i, want[i], grid[i])
		}
	}
	if !strings.Contains(text, "    0  1  2") {
		t.Errorf("Expected column header, got: %s", text)
	}
}

func TestFormatActionResult(t *testing.T) {
	t.Run("loss", func(t *testing.T) {
		text := formatActionResult(&service.ActionResult{
			Change: &engine.Change{
				Action:      engine.ActionReveal,
				Target:      engine.Position{Row: 1, Col: 1},
				Changed:     true,
				Detonated:   &engine.Position{Row: 1, Col: 1},
				PhaseBefore: engine.InProgress,
				PhaseAfter:  engine.Lost,
			},
		})
		if !strings.Contains(text, "BOOM! Mine at (1,1)") {
			t.Errorf("Expected loss message, got: %s", text)
		}
	})

	t.Run("win with new best", func(t *testing.T) {
		text := formatActionResult(&service.ActionResult{
			Change: &engine.Change{
				Action:      engine.ActionReveal,
				Changed:     true,
				Opened:      []engine.Position{{Row: 0, Col: 1}},
				PhaseBefore: engine.InProgress,
				PhaseAfter:  engine.Won,
			},
			ElapsedSeconds: 40,
			Record: &service.RecordResult{
				Player:   "Ann",
				Label:    "Easy",
				Seconds:  40,
				Stored:   true,
				NewBest:  true,
				Previous: &records.Record{Seconds: 55},
			},
		})
		if !strings.Contains(text, "You won in 40 seconds") {
			t.Errorf("Expected win message, got: %s", text)
		}
		if !strings.Contains(text, "New personal best for Ann on Easy: 40s (previous 55s)") {
			t.Errorf("Expected new best message, got: %s", text)
		}
	})

	t.Run("no change", func(t *testing.T) {
		text := formatActionResult(&service.ActionResult{
			Change: &engine.Change{Action: engine.ActionChord, PhaseBefore: engine.InProgress, PhaseAfter: engine.InProgress},
		})
		if !strings.Contains(text, "nothing changed") {
			t.Errorf("Expected no-op message, got: %s", text)
		}
	})
}

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestServer() *server.MCPServer {
	srv := server.NewMCPServer("roze-mcp-test", "0.0.1", server.WithToolCapabilities(true))
	srv.AddTool(
		mcp.NewTool("echo", mcp.WithDescription("Echo the message argument back."), mcp.WithString("message", mcp.Required())),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			msg, _ := req.GetArguments()["message"].(string)
			return mcp.NewToolResultText(msg), nil
		},
	)
	return srv
}

// runLoop feeds the input through a loop until EOF and returns the output
// lines. Listen returns only after every in-flight dispatch has finished, so
// the returned output is complete.
func runLoop(t *testing.T, srv *server.MCPServer, logger *zap.Logger, input string) []string {
	t.Helper()

	var out bytes.Buffer
	l := NewStdioLoop(srv, logger, WithIO(strings.NewReader(input), &out))
	require.NoError(t, l.Listen(context.Background()))

	raw := strings.TrimSpace(out.String())
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

// responsesByID indexes output lines by their JSON-RPC correlation id.
// Responses are written in completion order, so position is meaningless.
func responsesByID(t *testing.T, lines []string) map[float64]map[string]any {
	t.Helper()
	byID := make(map[float64]map[string]any, len(lines))
	for _, line := range lines {
		var msg map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &msg))
		id, ok := msg["id"].(float64)
		require.True(t, ok, "response line has no numeric id: %s", line)
		byID[id] = msg
	}
	return byID
}

func TestListenRoundTripsRequestID(t *testing.T) {
	lines := runLoop(t, newTestServer(), zap.NewNop(),
		`{"jsonrpc":"2.0","id":42,"method":"tools/list"}`+"\n")

	require.Len(t, lines, 1)
	byID := responsesByID(t, lines)
	resp, ok := byID[42]
	require.True(t, ok)
	assert.Contains(t, resp, "result")
	assert.NotContains(t, resp, "error")
}

func TestListenDropsUnparseableLines(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	input := "this is not valid json\n" +
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n"
	lines := runLoop(t, newTestServer(), logger, input)

	// The bad line produces a log entry and no response; the stream keeps
	// serving subsequent requests.
	require.Len(t, lines, 1)
	byID := responsesByID(t, lines)
	assert.Contains(t, byID, float64(1))

	entries := logs.FilterMessage("dropping unparseable input line").All()
	require.Len(t, entries, 1)
}

func TestListenSkipsBlankLines(t *testing.T) {
	input := "\n   \n" + `{"jsonrpc":"2.0","id":7,"method":"tools/list"}` + "\n"
	lines := runLoop(t, newTestServer(), zap.NewNop(), input)
	require.Len(t, lines, 1)
}

func TestListenUnknownMethod(t *testing.T) {
	lines := runLoop(t, newTestServer(), zap.NewNop(),
		`{"jsonrpc":"2.0","id":3,"method":"tools/destroy"}`+"\n")

	require.Len(t, lines, 1)
	byID := responsesByID(t, lines)
	resp, ok := byID[3]
	require.True(t, ok)
	assert.Contains(t, resp, "error")
}

func TestListenNotificationGetsNoResponse(t *testing.T) {
	lines := runLoop(t, newTestServer(), zap.NewNop(),
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n")
	assert.Empty(t, lines)
}

func TestListenHandlesConcurrentRequests(t *testing.T) {
	var input strings.Builder
	input.WriteString(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"message":"one"}}}` + "\n")
	input.WriteString(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"message":"two"}}}` + "\n")
	input.WriteString(`{"jsonrpc":"2.0","id":3,"method":"tools/list"}` + "\n")

	lines := runLoop(t, newTestServer(), zap.NewNop(), input.String())
	require.Len(t, lines, 3)

	byID := responsesByID(t, lines)
	for _, id := range []float64{1, 2, 3} {
		resp, ok := byID[id]
		require.True(t, ok, "missing response for id %v", id)
		assert.Contains(t, resp, "result")
	}

	// Each response line is a complete standalone JSON document.
	for _, line := range lines {
		assert.True(t, json.Valid([]byte(line)))
	}
}

func TestListenStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// A reader that never delivers EOF keeps the intake goroutine alive; the
	// loop must still exit promptly once the context is cancelled.
	var out bytes.Buffer
	l := NewStdioLoop(newTestServer(), zap.NewNop(), WithIO(&blockingReader{}, &out))

	done := make(chan error, 1)
	go func() { done <- l.Listen(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after context cancellation")
	}
}

// blockingReader blocks forever, simulating an idle stdin.
type blockingReader struct{}

func (r *blockingReader) Read([]byte) (int, error) {
	select {}
}

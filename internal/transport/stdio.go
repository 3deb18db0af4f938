// Package transport implements the line-delimited stdio transport loop.
// The loop reads one JSON-RPC request per line, dispatches it without
// blocking intake of further lines, and writes exactly one response line per
// parseable request. Responses are written in completion order and matched to
// requests solely by the correlation id in the JSON-RPC envelope.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// maxLineBytes bounds a single input line.
const maxLineBytes = 10 * 1024 * 1024

// StdioLoop is the transport state machine. Method routing (initialize,
// tools/list, tools/call, method-not-found) is delegated to the MCP server;
// the loop owns line framing, concurrency and the drop-unparseable-input rule.
type StdioLoop struct {
	server *server.MCPServer
	logger *zap.Logger

	reader io.Reader
	writer io.Writer

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// Option configures a StdioLoop.
type Option func(*StdioLoop)

// WithIO replaces the default stdin/stdout streams. Used by tests and by
// embedders that own the process streams.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(l *StdioLoop) {
		l.reader = r
		l.writer = w
	}
}

// NewStdioLoop creates a transport loop serving the given MCP server over
// stdin/stdout.
func NewStdioLoop(srv *server.MCPServer, logger *zap.Logger, opts ...Option) *StdioLoop {
	l := &StdioLoop{
		server: srv,
		logger: logger,
		reader: os.Stdin,
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Listen consumes the input stream until EOF or context cancellation, then
// waits for all in-flight dispatches to finish. Both exits are graceful and
// return nil; only a read failure on the stream itself is an error.
func (l *StdioLoop) Listen(ctx context.Context) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(l.reader)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			l.wg.Wait()
			return nil
		case err := <-readErr:
			l.wg.Wait()
			if err != nil {
				return fmt.Errorf("failed to read input stream: %w", err)
			}
			return nil
		case line := <-lines:
			l.dispatchLine(ctx, line)
		}
	}
}

// dispatchLine hands one input line to the MCP server. Each line is handled
// in its own goroutine so one slow backend call never blocks intake; the
// shared contract and registry state is read-only, so no coordination is
// needed beyond the write mutex.
func (l *StdioLoop) dispatchLine(ctx context.Context, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	// An unparseable line carries no reliable correlation id, so it is
	// logged and dropped without a response.
	if !json.Valid(line) {
		l.logger.Warn("dropping unparseable input line", zap.Int("length", len(line)))
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.recoverDispatch(line)

		resp := l.server.HandleMessage(ctx, line)
		if resp == nil {
			// Notification: no response is expected.
			return
		}
		l.writeMessage(resp)
	}()
}

// recoverDispatch converts a fault escaping the dispatch layer into a
// JSON-RPC error response. It must never let the process terminate.
func (l *StdioLoop) recoverDispatch(line []byte) {
	r := recover()
	if r == nil {
		return
	}
	l.logger.Error("recovered from fault during dispatch", zap.Any("fault", r))

	var envelope struct {
		ID any `json:"id"`
	}
	_ = json.Unmarshal(line, &envelope)

	l.writeMessage(map[string]any{
		"jsonrpc": mcp.JSONRPC_VERSION,
		"id":      envelope.ID,
		"error": map[string]any{
			"code":    mcp.INTERNAL_ERROR,
			"message": "internal error during dispatch",
			"data":    fmt.Sprintf("%v", r),
		},
	})
}

// writeMessage writes one complete JSON-RPC message as a single output line.
// The mutex keeps concurrently completing responses from interleaving.
func (l *StdioLoop) writeMessage(msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		l.logger.Error("failed to encode response", zap.Error(err))
		return
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if _, err := l.writer.Write(append(b, '\n')); err != nil {
		l.logger.Error("failed to write response", zap.Error(err))
	}
}

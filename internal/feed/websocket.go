package feed

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/cartridge/fighter/internal/controller"
	"github.com/cartridge/fighter/internal/gamestate"
)

const snapshotReadLimit = 1 << 20

// WebSocket reads snapshots from the match bridge and sends pad commands back
// over the same connection. Next must be called from a single goroutine;
// pads may be used concurrently.
type WebSocket struct {
	conn   *websocket.Conn
	logger zerolog.Logger
}

var _ Source = (*WebSocket)(nil)

// DialWebSocket connects to the bridge at url.
func DialWebSocket(ctx context.Context, url string, logger zerolog.Logger) (*WebSocket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial bridge at %s: %w", url, err)
	}
	logger.Info().Str("url", url).Msg("Connected to match bridge")
	return NewWebSocket(conn, logger), nil
}

// NewWebSocket wraps an established connection.
func NewWebSocket(conn *websocket.Conn, logger zerolog.Logger) *WebSocket {
	conn.SetReadLimit(snapshotReadLimit)
	return &WebSocket{
		conn:   conn,
		logger: logger.With().Str("component", "feed_websocket").Logger(),
	}
}

// Next implements Source. A normal close from the bridge is io.EOF.
func (w *WebSocket) Next(ctx context.Context) (gamestate.Snapshot, error) {
	var snap gamestate.Snapshot
	if err := wsjson.Read(ctx, w.conn, &snap); err != nil {
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return gamestate.Snapshot{}, io.EOF
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return gamestate.Snapshot{}, ctxErr
		}
		return gamestate.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	return snap, nil
}

// Pad returns the pad for port.
func (w *WebSocket) Pad(port gamestate.Port) controller.Pad {
	return portPad{port: port, sender: w}
}

func (w *WebSocket) send(ctx context.Context, cmd Command) error {
	if err := wsjson.Write(ctx, w.conn, cmd); err != nil {
		return fmt.Errorf("send %s command: %w", cmd.Op, err)
	}
	return nil
}

// Close closes the connection normally.
func (w *WebSocket) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "agent shutting down")
}

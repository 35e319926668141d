package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/coder/websocket"
)

// dialWebsocket opens the bus websocket and adapts it to a byte stream for
// the STOMP codec. Frames are null-delimited, so message boundaries are
// recovered from the stream without relying on websocket message framing.
func dialWebsocket(ctx context.Context, url string) (io.ReadWriteCloser, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	conn.SetReadLimit(1 << 20)
	return websocket.NetConn(context.WithoutCancel(ctx), conn, websocket.MessageText), nil
}

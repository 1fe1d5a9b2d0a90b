// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/term"

	"github.com/openebike/linkview/pkg/motorlink"
)

// Connection provides a common interface for reading/writing bytes from
// serial or WebSocket
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = fmt.Errorf("websocket connection closed")

// WebSocketConnection wraps a WebSocket connection for byte-level reading
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool // Track if connection has failed/closed
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	// Return immediately if connection is known to be closed
	if w.closed {
		return 0, ErrConnectionClosed
	}

	// If we have buffered data, return it first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	// Read next message from WebSocket (non-recursive loop to avoid stack overflow)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			// Mark connection as closed to prevent further read attempts
			w.closed = true
			return 0, err
		}

		// Only binary messages carry link bytes
		if messageType != websocket.BinaryMessage {
			continue
		}

		// Buffer the message and return what fits
		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	err := w.conn.WriteMessage(websocket.BinaryMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	// Build HTTP headers with Basic auth
	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("LINKVIEW_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// wsTransport adapts a byte-stream Connection to the link task's
// non-blocking transport. A background reader keeps a small buffer full;
// bit-rate changes are a no-op because the remote bridge owns the
// physical port.
type wsTransport struct {
	conn    Connection
	pending chan byte
	closed  chan struct{}
}

func newWSTransport(conn Connection) *wsTransport {
	t := &wsTransport{
		conn:    conn,
		pending: make(chan byte, 512),
		closed:  make(chan struct{}),
	}
	go t.reader()
	return t
}

func (t *wsTransport) reader() {
	buf := make([]byte, 128)
	for {
		n, err := t.conn.Read(buf)
		if err != nil {
			close(t.closed)
			return
		}
		for _, b := range buf[:n] {
			select {
			case t.pending <- b:
			default:
				// Overrun: drop the byte, the recognizers resynchronize.
			}
		}
	}
}

func (t *wsTransport) ByteAvailable() bool {
	return len(t.pending) > 0
}

func (t *wsTransport) ReadByte() (byte, error) {
	select {
	case b := <-t.pending:
		return b, nil
	default:
		return 0, fmt.Errorf("no byte available")
	}
}

func (t *wsTransport) WriteReady() bool {
	select {
	case <-t.closed:
		return false
	default:
		return true
	}
}

func (t *wsTransport) WriteByte(b byte) error {
	_, err := t.conn.Write([]byte{b})
	return err
}

func (t *wsTransport) SetBitRate(baud int) error {
	return nil
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// OpenTransport opens the link transport selected by the connection
// flags: a local serial port or a WebSocket bridge.
func OpenTransport(cfg motorlink.Config) (motorlink.Transport, io.Closer, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, nil, "", err
		}
		t := newWSTransport(conn)
		return t, t, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if cfg.Port != "" {
		t, err := motorlink.OpenSerial(cfg.Port, motorlink.BitRateFor(cfg.ForcedProtocol()))
		if err != nil {
			return nil, nil, "", err
		}
		return t, t, fmt.Sprintf("Serial: %s", cfg.Port), nil
	}

	return nil, nil, "", fmt.Errorf("either --port or --url must be specified")
}

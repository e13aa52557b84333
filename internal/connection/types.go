package connection

import (
	"errors"
	"net/http"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrShutdown        = errors.New("manager shut down")
)

// TimestampedMessage wraps raw frame data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw frame bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // Game-session endpoint (e.g., ws://localhost:9000/ws?room=r1)
	Header           http.Header   // Extra handshake headers (e.g., Authorization)
	HandshakeTimeout time.Duration // Max time for the opening handshake
	PingInterval     time.Duration // How often to send keepalive pings
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       256,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Client               ClientConfig  // Template for each connection attempt; URL is set per attempt
	ReconnectBaseWait    time.Duration // Delay before the first reconnect after a close
	ReconnectMaxWait     time.Duration // Ceiling for exponential backoff (== base for a fixed delay)
	MaxReconnectAttempts int           // Consecutive reconnects without an open before giving up (0 = unlimited)
}

// DefaultManagerConfig returns defaults: a fixed 5s reconnect delay, retried forever.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Client:            DefaultClientConfig(),
		ReconnectBaseWait: 5 * time.Second,
		ReconnectMaxWait:  5 * time.Second,
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	ConnectAttempts     int64
	ReconnectsScheduled int64
	SendFailures        int64
	ConsecutiveFailures int
	RetryPending        bool
}

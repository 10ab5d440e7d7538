package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
)

// ErrMaxReconnects ends Run after the reconnect budget is spent. It is logged,
// never returned.
var ErrMaxReconnects = errors.New("max reconnect attempts reached")

// ConnectionError is returned by Run when the first subscription cannot be
// opened.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ConnectionState is the manager's position in its lifecycle.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateStreaming
	StateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Filter selects the transactions a subscription delivers.
type Filter struct {
	Include    []string
	Exclude    []string
	Commitment string
}

// MessageKind tags an inbound feed message.
type MessageKind int

const (
	KindOther MessageKind = iota
	KindTransaction
	KindPing
	KindPong
)

// Message is one inbound feed message. Tx is set for KindTransaction, Payload
// carries ping data to echo back. Err explains a KindOther that failed to decode.
type Message struct {
	Kind    MessageKind
	Tx      *models.LiveTransaction
	Payload []byte
	Err     error
}

// Subscriber opens feed sessions.
type Subscriber interface {
	// Endpoint names the feed for logs.
	Endpoint() string
	Subscribe(ctx context.Context, f Filter) (Session, error)
}

// Session is one live subscription. Recv is called from a single goroutine;
// Ping and Pong may be called concurrently with it.
type Session interface {
	Recv(ctx context.Context) (Message, error)
	Ping(ctx context.Context) error
	Pong(ctx context.Context, payload []byte) error
	Close() error
}

// Handler processes one transaction. It owns tx.
type Handler func(ctx context.Context, tx *models.LiveTransaction)

// Status is a point-in-time view of the manager.
type Status struct {
	State    string `json:"state"`
	Attempts int    `json:"attempts"`
	Inflight int64  `json:"inflight"`
	Endpoint string `json:"endpoint"`
}

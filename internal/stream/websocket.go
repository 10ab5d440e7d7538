package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/rpc"
)

const writeWait = 5 * time.Second

type WebsocketConfig struct {
	// Endpoint is the wss URL of a transactionSubscribe capable node.
	Endpoint string

	// Token is appended as the api-key query parameter when set.
	Token string

	Dialer *websocket.Dialer
}

// WebsocketSubscriber opens transactionSubscribe sessions over a websocket.
type WebsocketSubscriber struct {
	endpoint string
	token    string
	dialer   *websocket.Dialer
}

func NewWebsocketSubscriber(cfg WebsocketConfig) *WebsocketSubscriber {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &WebsocketSubscriber{endpoint: cfg.Endpoint, token: cfg.Token, dialer: cfg.Dialer}
}

func (w *WebsocketSubscriber) Endpoint() string { return w.endpoint }

func (w *WebsocketSubscriber) url() (string, error) {
	u, err := url.Parse(w.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if w.token != "" {
		q := u.Query()
		q.Set("api-key", w.token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Subscribe dials, sends the subscription and waits for its acknowledgement.
// ctx bounds the whole handshake.
func (w *WebsocketSubscriber) Subscribe(ctx context.Context, f Filter) (Session, error) {
	target, err := w.url()
	if err != nil {
		return nil, err
	}

	conn, _, err := w.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.SetReadDeadline(deadline)
	}
	if err := conn.WriteJSON(subscribeRequest(f)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	var ack struct {
		Result json.RawMessage `json:"result"`
		Error  *rpc.RPCError   `json:"error"`
	}
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe ack: %w", err)
	}
	if ack.Error != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe rejected: %w", ack.Error)
	}
	_ = conn.SetWriteDeadline(time.Time{})
	_ = conn.SetReadDeadline(time.Time{})

	return newWSSession(conn), nil
}

func subscribeRequest(f Filter) map[string]any {
	commitment := f.Commitment
	if commitment == "" {
		commitment = "confirmed"
	}
	filter := map[string]any{
		"vote":           false,
		"failed":         false,
		"accountInclude": nonNil(f.Include),
	}
	if len(f.Exclude) > 0 {
		filter["accountExclude"] = f.Exclude
	}
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "transactionSubscribe",
		"params": []any{
			filter,
			map[string]any{
				"commitment":                     commitment,
				"encoding":                       "jsonParsed",
				"transactionDetails":             "full",
				"showRewards":                    false,
				"maxSupportedTransactionVersion": 0,
			},
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// wsSession pumps frames from a reader goroutine so control frames surface
// as messages while Recv is idle.
type wsSession struct {
	conn  *websocket.Conn
	msgs  chan Message
	errc  chan error
	done  chan struct{}
	close sync.Once
}

func newWSSession(conn *websocket.Conn) *wsSession {
	s := &wsSession{
		conn: conn,
		msgs: make(chan Message, 64),
		errc: make(chan error, 1),
		done: make(chan struct{}),
	}
	conn.SetPingHandler(func(data string) error {
		s.emit(Message{Kind: KindPing, Payload: []byte(data)})
		return nil
	})
	conn.SetPongHandler(func(string) error {
		s.emit(Message{Kind: KindPong})
		return nil
	})
	go s.read()
	return s
}

func (s *wsSession) emit(m Message) bool {
	select {
	case s.msgs <- m:
		return true
	case <-s.done:
		return false
	}
}

func (s *wsSession) read() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.errc <- err
			return
		}
		if !s.emit(decodeNotification(data)) {
			return
		}
	}
}

func (s *wsSession) Recv(ctx context.Context) (Message, error) {
	select {
	case m := <-s.msgs:
		return m, nil
	default:
	}
	select {
	case m := <-s.msgs:
		return m, nil
	case err := <-s.errc:
		return Message{}, fmt.Errorf("websocket read: %w", err)
	case <-s.done:
		return Message{}, errors.New("session closed")
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (s *wsSession) Ping(context.Context) error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (s *wsSession) Pong(_ context.Context, payload []byte) error {
	return s.conn.WriteControl(websocket.PongMessage, payload, time.Now().Add(writeWait))
}

func (s *wsSession) Close() error {
	var err error
	s.close.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

type notification struct {
	Method string `json:"method"`
	Params *struct {
		Result struct {
			Signature   string `json:"signature"`
			Slot        uint64 `json:"slot"`
			Transaction struct {
				Transaction *rpc.Transaction     `json:"transaction"`
				Meta        *rpc.TransactionMeta `json:"meta"`
			} `json:"transaction"`
		} `json:"result"`
	} `json:"params"`
}

// decodeNotification turns a transactionNotification frame into a
// transaction message. Everything else is KindOther.
func decodeNotification(data []byte) Message {
	var n notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Message{Kind: KindOther, Err: fmt.Errorf("decode frame: %w", err)}
	}
	if n.Method != "transactionNotification" || n.Params == nil {
		return Message{Kind: KindOther}
	}

	res := n.Params.Result
	if res.Transaction.Meta != nil && res.Transaction.Meta.Err != nil {
		return Message{Kind: KindOther}
	}
	tx, err := rpc.DecodeLive(&rpc.TransactionResult{
		Slot:        res.Slot,
		Meta:        res.Transaction.Meta,
		Transaction: res.Transaction.Transaction,
	})
	if err != nil {
		return Message{Kind: KindOther, Err: err}
	}
	return Message{Kind: KindTransaction, Tx: tx}
}

// Package adapterws speaks the versioned JSON wire protocol to a CRM adapter
// service over websocket. Client is the caller side and implements
// adapter.Service; Handler is the serving side, used to expose a Service
// implementation (or a fake in tests) over the same protocol.
package adapterws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"crmgen/adapter"
	"crmgen/internal/wire"
	"crmgen/logging"
	transportlog "crmgen/logging/transport"
)

var (
	// ErrClientClosed is returned for calls made after the session ended.
	ErrClientClosed = errors.New("adapterws: client closed")
	// ErrAdapterRejected wraps an error message reported by the adapter.
	ErrAdapterRejected = errors.New("adapterws: adapter rejected call")

	errMissingPayload        = errors.New("adapterws: response frame carries no payload")
	errMissingRequestPayload = errors.New("adapterws: request frame carries no payload")
)

// ClientConfig carries the dial parameters and collaborators for a Client.
type ClientConfig struct {
	URL         string
	DialTimeout time.Duration
	CallTimeout time.Duration
	Dialer      *websocket.Dialer
	Logger      *log.Logger
	Publisher   logging.Publisher
}

// Client is a websocket session against the CRM adapter. Calls are
// multiplexed over the single connection by sequence number; it is safe for
// concurrent use.
type Client struct {
	conn        *websocket.Conn
	logger      *log.Logger
	pub         logging.Publisher
	remote      logging.EntityRef
	callTimeout time.Duration

	seq atomic.Uint64

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan wire.ResponseV1

	done   chan struct{}
	closed atomic.Bool
}

// Dial opens a websocket session to the adapter and starts the read loop.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("adapterws: dial %s: %w", cfg.URL, err)
	}

	c := &Client{
		conn:        conn,
		logger:      logger,
		pub:         pub,
		remote:      logging.EntityRef{ID: conn.RemoteAddr().String(), Kind: logging.EntityKindAdapter},
		callTimeout: cfg.CallTimeout,
		pending:     make(map[uint64]chan wire.ResponseV1),
		done:        make(chan struct{}),
	}
	transportlog.Connected(ctx, c.pub, c.remote, nil)
	go c.readLoop()
	return c, nil
}

// CreateEntity implements adapter.Service.
func (c *Client) CreateEntity(ctx context.Context, req adapter.CreateRequest) (adapter.CreateResponse, error) {
	resp, err := c.call(ctx, wire.RequestV1{Op: wire.OpCreateEntity, Create: &req})
	if err != nil {
		return adapter.CreateResponse{}, err
	}
	if resp.Create == nil {
		return adapter.CreateResponse{}, errMissingPayload
	}
	return *resp.Create, nil
}

// UpdateEntity implements adapter.Service.
func (c *Client) UpdateEntity(ctx context.Context, req adapter.UpdateRequest) (adapter.UpdateResponse, error) {
	resp, err := c.call(ctx, wire.RequestV1{Op: wire.OpUpdateEntity, Update: &req})
	if err != nil {
		return adapter.UpdateResponse{}, err
	}
	if resp.Update == nil {
		return adapter.UpdateResponse{}, errMissingPayload
	}
	return *resp.Update, nil
}

// SearchEntities implements adapter.Service.
func (c *Client) SearchEntities(ctx context.Context, req adapter.SearchRequest) (adapter.SearchResponse, error) {
	resp, err := c.call(ctx, wire.RequestV1{Op: wire.OpSearchEntities, Search: &req})
	if err != nil {
		return adapter.SearchResponse{}, err
	}
	if resp.Search == nil {
		return adapter.SearchResponse{}, errMissingPayload
	}
	return *resp.Search, nil
}

func (c *Client) call(ctx context.Context, req wire.RequestV1) (wire.ResponseV1, error) {
	if c.closed.Load() {
		return wire.ResponseV1{}, ErrClientClosed
	}
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	req.Seq = c.seq.Add(1)
	ch := make(chan wire.ResponseV1, 1)
	c.mu.Lock()
	c.pending[req.Seq] = ch
	c.mu.Unlock()

	data, err := wire.EncodeRequest(req)
	if err != nil {
		c.unregister(req.Seq)
		return wire.ResponseV1{}, fmt.Errorf("adapterws: encode %s: %w", req.Op, err)
	}
	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.unregister(req.Seq)
		return wire.ResponseV1{}, fmt.Errorf("adapterws: write %s: %w", req.Op, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			transportlog.CallFailed(ctx, c.pub, c.remote, transportlog.CallPayload{
				Op:      req.Op,
				Seq:     req.Seq,
				Message: resp.Error,
			}, nil)
			return wire.ResponseV1{}, fmt.Errorf("%w: %s", ErrAdapterRejected, resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		c.unregister(req.Seq)
		return wire.ResponseV1{}, ctx.Err()
	case <-c.done:
		return wire.ResponseV1{}, ErrClientClosed
	}
}

func (c *Client) unregister(seq uint64) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.mu.Unlock()
}

func (c *Client) readLoop() {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}
		resp, err := wire.DecodeResponse(payload)
		if err != nil {
			c.logger.Printf("discarding malformed message from %s: %v", c.remote.ID, err)
			transportlog.Malformed(context.Background(), c.pub, c.remote, err.Error(), nil)
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.Seq]
		if ok {
			delete(c.pending, resp.Seq)
		}
		c.mu.Unlock()
		if !ok {
			c.logger.Printf("dropping unsolicited response seq=%d from %s", resp.Seq, c.remote.ID)
			continue
		}
		ch <- resp
	}
}

func (c *Client) shutdown(cause error) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.done)
	c.mu.Lock()
	c.pending = make(map[uint64]chan wire.ResponseV1)
	c.mu.Unlock()
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	transportlog.Disconnected(context.Background(), c.pub, c.remote, reason, nil)
}

// Close ends the session. In-flight calls fail with ErrClientClosed.
func (c *Client) Close() error {
	if c.closed.Load() {
		return nil
	}
	c.writeMu.Lock()
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteMessage(websocket.CloseMessage, message)
	c.writeMu.Unlock()
	err := c.conn.Close()
	c.shutdown(nil)
	return err
}

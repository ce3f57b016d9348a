package rpc

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/crytic/medusa-geth/rpc"
	"github.com/pkg/errors"
	"golang.org/x/net/context"
)

// ClientPoolConfig bounds how the pool talks to the remote node.
type ClientPoolConfig struct {
	// RequestTimeout bounds each individual attempt of a request. Zero means no per-attempt timeout.
	RequestTimeout time.Duration

	// MaxRetries is the number of attempts made before a request fails.
	MaxRetries int

	// RetryBackoff is the delay before the second attempt. It doubles on every further attempt.
	RetryBackoff time.Duration
}

// DefaultClientPoolConfig returns the default ClientPoolConfig.
func DefaultClientPoolConfig() ClientPoolConfig {
	return ClientPoolConfig{
		RequestTimeout: 30 * time.Second,
		MaxRetries:     3,
		RetryBackoff:   100 * time.Millisecond,
	}
}

// ClientPool spreads JSON-RPC requests over a fixed set of connections to one endpoint. Identical requests issued
// while one is already in flight share its result.
type ClientPool struct {
	rpcClients       []*rpc.Client
	currentClientIdx int
	clientLock       sync.Mutex

	inflightRequests map[requestKey]*inflightRequest
	inflightLock     sync.Mutex

	endpoint string
	config   ClientPoolConfig
}

// NewClientPool dials poolSize connections to endpoint.
func NewClientPool(endpoint string, poolSize uint, config ClientPoolConfig) (*ClientPool, error) {
	if poolSize == 0 {
		poolSize = 1
	}
	clients := make([]*rpc.Client, poolSize)
	for i := range clients {
		client, err := rpc.Dial(endpoint)
		if err != nil {
			for _, dialed := range clients[:i] {
				dialed.Close()
			}
			return nil, errors.Wrapf(err, "could not dial %s", endpoint)
		}
		clients[i] = client
	}
	return NewClientPoolFromClients(endpoint, clients, config), nil
}

// NewClientPoolFromClients creates a pool over already connected clients.
func NewClientPoolFromClients(endpoint string, clients []*rpc.Client, config ClientPoolConfig) *ClientPool {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 1
	}
	return &ClientPool{
		rpcClients:       clients,
		inflightRequests: make(map[requestKey]*inflightRequest),
		endpoint:         endpoint,
		config:           config,
	}
}

// Endpoint returns the URL the pool is connected to.
func (c *ClientPool) Endpoint() string {
	return c.endpoint
}

// ExecuteRequestBlocking executes a request and decodes its result into result, which must be a pointer.
func (c *ClientPool) ExecuteRequestBlocking(ctx context.Context, result any, method string, args ...any) error {
	pending, err := c.ExecuteRequestAsync(ctx, method, args...)
	if err != nil {
		return err
	}
	return pending.GetResultBlocking(result)
}

// ExecuteRequestAsync launches a request and returns a PendingResult for it without waiting. If an identical request
// is already in flight, its PendingResult is shared instead.
func (c *ClientPool) ExecuteRequestAsync(ctx context.Context, method string, args ...any) (*PendingResult, error) {
	key, err := makeRequestKey(method, args...)
	if err != nil {
		return nil, err
	}

	c.inflightLock.Lock()
	if inflight, exists := c.inflightRequests[key]; exists {
		c.inflightLock.Unlock()
		return newPendingResult(inflight), nil
	}
	inflight := &inflightRequest{
		Done:    make(chan struct{}),
		Context: ctx,
	}
	c.inflightRequests[key] = inflight
	c.inflightLock.Unlock()

	go c.launchRequest(c.getClient(), key, inflight, method, args...)
	return newPendingResult(inflight), nil
}

// Close closes every connection of the pool.
func (c *ClientPool) Close() {
	for _, client := range c.rpcClients {
		client.Close()
	}
}

func (c *ClientPool) getClient() *rpc.Client {
	c.clientLock.Lock()
	defer c.clientLock.Unlock()

	client := c.rpcClients[c.currentClientIdx]
	c.currentClientIdx = (c.currentClientIdx + 1) % len(c.rpcClients)
	return client
}

func (c *ClientPool) launchRequest(
	client *rpc.Client,
	key requestKey,
	request *inflightRequest,
	method string,
	args ...any) {
	defer func() {
		// Completed requests leave the in-flight table; callers memoize results themselves.
		c.inflightLock.Lock()
		delete(c.inflightRequests, key)
		c.inflightLock.Unlock()
		close(request.Done)
	}()

	var err error
	backoff := c.config.RetryBackoff
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-request.Context.Done():
				request.Error = request.Context.Err()
				return
			}
			backoff *= 2
		}

		var result json.RawMessage
		err = c.callWithTimeout(client, request.Context, &result, method, args...)
		if err == nil {
			request.Result = result
			return
		}
		if request.Context.Err() != nil {
			request.Error = request.Context.Err()
			return
		}
		if IsMethodNotFound(err) {
			request.Error = errors.WithStack(err)
			return
		}
	}
	request.Error = errors.Wrapf(err, "%s failed after %d attempts", method, c.config.MaxRetries)
}

// MethodNotFoundCode is the JSON-RPC error code a node answers with for a method it does not serve.
const MethodNotFoundCode = -32601

// IsMethodNotFound reports whether err carries a method-not-found JSON-RPC error. Such a response is final, so it is
// never retried.
func IsMethodNotFound(err error) bool {
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr) && rpcErr.ErrorCode() == MethodNotFoundCode
}

func (c *ClientPool) callWithTimeout(client *rpc.Client, ctx context.Context, result any, method string, args ...any) error {
	if c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}
	return client.CallContext(ctx, result, method, args...)
}

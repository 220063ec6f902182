package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hashmarket/hashmarket-core/internal/stratum"
)

// Route paths the control-plane binary serves (internal/api/ingress_handlers.go)
// and this client calls.
const (
	pathOrderLookup = "/internal/v1/order-lookup"
	pathConnect     = "/internal/v1/connect"
	pathShare       = "/internal/v1/share"
	pathHashrate    = "/internal/v1/hashrate"
	pathDisconnect  = "/internal/v1/disconnect"
)

// Client implements stratum.ControlPlane over HTTP, the same
// http.Client-with-timeout shape as the teacher's geoip.Service. It is
// the only concrete ControlPlane a proxy binary wires in production.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// NewClient builds a Client. baseURL points at the control-plane binary,
// e.g. "http://controlplane.internal:8080".
func NewClient(baseURL string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("call %s: unexpected status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetOrderByWorker gates the handshake (spec.md §4.4): an error here
// must reach the proxy, since an unresolvable worker id aborts the
// connection (ErrUnknownWorker).
func (c *Client) GetOrderByWorker(ctx context.Context, workerID string) (stratum.OrderLookup, error) {
	var resp orderLookupResponse
	if err := c.post(ctx, pathOrderLookup, connectRequest{WorkerID: workerID}, &resp); err != nil {
		return stratum.OrderLookup{}, err
	}
	return resp.toDomain(), nil
}

// Connect, Share, Hashrate, and Disconnect are advisory callbacks
// (spec.md §4.6/§7): failures are logged here and swallowed, never
// propagated to the relay loop that triggered them.
func (c *Client) Connect(ctx context.Context, workerID, remoteIP, userAgent string) {
	if err := c.post(ctx, pathConnect, connectRequest{WorkerID: workerID, RemoteIP: remoteIP, UserAgent: userAgent}, nil); err != nil {
		c.logger.Printf("controlplane client: connect callback for %s failed: %v", workerID, err)
	}
}

func (c *Client) Share(ctx context.Context, workerID string, outcome stratum.ShareOutcome, difficulty float64, at time.Time) {
	req := shareRequest{WorkerID: workerID, Outcome: string(outcome), Difficulty: difficulty, At: at}
	if err := c.post(ctx, pathShare, req, nil); err != nil {
		c.logger.Printf("controlplane client: share callback for %s failed: %v", workerID, err)
	}
}

func (c *Client) Hashrate(ctx context.Context, workerID string, hashrate, accuracy float64, accepted, rejected int64, low bool) {
	req := hashrateRequest{WorkerID: workerID, Hashrate: hashrate, Accuracy: accuracy, Accepted: accepted, Rejected: rejected, Low: low}
	if err := c.post(ctx, pathHashrate, req, nil); err != nil {
		c.logger.Printf("controlplane client: hashrate callback for %s failed: %v", workerID, err)
	}
}

func (c *Client) Disconnect(ctx context.Context, workerID, reason string) {
	if err := c.post(ctx, pathDisconnect, disconnectRequest{WorkerID: workerID, Reason: reason}, nil); err != nil {
		c.logger.Printf("controlplane client: disconnect callback for %s failed: %v", workerID, err)
	}
}

var _ stratum.ControlPlane = (*Client)(nil)

// content/client.go
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/wfunc/analogyarena/logger"
)

// GenerateRequest 发给生成服务的请求体
type GenerateRequest struct {
	Mode  Mode   `json:"mode"`
	Topic string `json:"topic,omitempty"`
}

// Client calls the hosted generation function over HTTP. There are no
// automatic retries; a failed call is reported as ErrNoContent and the caller
// decides whether to ask again.
type Client struct {
	baseURL        string
	apiKey         string
	http           *fasthttp.Client
	defaultTimeout time.Duration
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

// WithHTTPClient replaces the underlying fasthttp client, mainly for tests.
func WithHTTPClient(h *fasthttp.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 20 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 32},
		defaultTimeout: 20 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Generate(ctx context.Context, mode Mode, topic string) (Generated, error) {
	raw, err := c.post(ctx, "/generate", GenerateRequest{Mode: mode, Topic: strings.TrimSpace(topic)})
	if err != nil {
		logger.Log.Warnw("content generation failed", "mode", mode, "topic", topic, "error", err)
		return Generated{}, fmt.Errorf("%w: %v", ErrNoContent, err)
	}
	g, err := ParseContent(mode, raw)
	if err != nil {
		logger.Log.Warnw("content generation unparseable", "mode", mode, "topic", topic)
		return Generated{}, err
	}
	g.Topic = topic
	return g, nil
}

func (c *Client) post(ctx context.Context, path string, in interface{}) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req.SetBody(payload)

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("generator error: status=%d body=%s", status, truncate(string(resp.Body()), 256))
	}
	// resp 会被回收，复制一份
	return append([]byte(nil), resp.Body()...), nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package orion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mirzahilmi/lora-orion-bridge/internal/common/config"
)

// maxBodySize bounds how much of an error response is kept for diagnostics.
const maxBodySize = 4 << 10

type Response struct {
	StatusCode int
	Body       []byte
}

type Transport interface {
	Patch(ctx context.Context, url string, body []byte) (Response, error)
	Post(ctx context.Context, url string, body []byte) (Response, error)
}

type HTTPTransport struct {
	client  *http.Client
	headers map[string]string
}

func NewHTTPTransport(cfg config.Orion) *HTTPTransport {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if cfg.UserAgent != "" {
		headers["User-Agent"] = cfg.UserAgent
	}
	if cfg.Service != "" {
		headers["Fiware-Service"] = cfg.Service
	}
	if cfg.ServicePath != "" {
		headers["Fiware-ServicePath"] = cfg.ServicePath
	}

	return &HTTPTransport{
		client:  &http.Client{Timeout: timeout},
		headers: headers,
	}
}

func (t *HTTPTransport) Patch(ctx context.Context, url string, body []byte) (Response, error) {
	return t.do(ctx, http.MethodPatch, url, body)
}

func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte) (Response, error) {
	return t.do(ctx, http.MethodPost, url, body)
}

func (t *HTTPTransport) do(ctx context.Context, method, url string, body []byte) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("orion: cannot build %s request: %w", method, err)
	}
	for key, value := range t.headers {
		req.Header.Set(key, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("orion: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Response{StatusCode: resp.StatusCode}, fmt.Errorf("orion: reading response body: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// Package ollama is a minimal HTTP client for an Ollama-compatible chat
// server. It covers the two upstream calls the backend needs: a liveness
// probe against a well-known sub-path, and a streaming chat completion
// exposed as a Stream of content fragments.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Turn is one message in the conversation sent upstream. Role is "user" or
// "assistant" per the Ollama chat API.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the wire payload for POST {base}/api/chat.
type chatRequest struct {
	Model    string `json:"model"`
	Messages []Turn `json:"messages"`
	Stream   bool   `json:"stream"`
}

// chatChunk is one NDJSON line of a streamed chat response.
type chatChunk struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

// Client calls an Ollama-compatible server over HTTP. The zero timeout on the
// embedded http.Client is intentional: chat completions are long-lived streams
// bounded by the request context, while the probe gets its own short deadline.
type Client struct {
	HTTP         *http.Client
	ProbePath    string
	ProbeTimeout time.Duration
}

// NewClient builds a Client probing probePath with probeTimeout.
func NewClient(probePath string, probeTimeout time.Duration) *Client {
	return &Client{
		HTTP:         &http.Client{},
		ProbePath:    probePath,
		ProbeTimeout: probeTimeout,
	}
}

// Check performs a liveness probe: GET {base}{ProbePath} must answer 2xx
// within ProbeTimeout. It never hangs past the timeout.
func (c *Client) Check(ctx context.Context, base string) error {
	ctx, cancel := context.WithTimeout(ctx, c.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+c.ProbePath, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe %s: unexpected status %d", base, resp.StatusCode)
	}
	return nil
}

// Chat opens a streaming chat completion against base. The returned Stream is
// lazy, finite, and non-restartable; it is bound to ctx, so cancelling the
// context (e.g. on client disconnect) tears down the upstream connection.
func (c *Client) Chat(ctx context.Context, base, model string, turns []Turn) (*Stream, error) {
	payload, err := json.Marshal(chatRequest{Model: model, Messages: turns, Stream: true})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat %s: %w", base, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("chat %s: status %d: %s", base, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return &Stream{body: resp.Body, dec: json.NewDecoder(resp.Body)}, nil
}

// Stream yields content fragments of one chat completion as they arrive.
// It is not safe for concurrent use.
type Stream struct {
	body io.ReadCloser
	dec  *json.Decoder
	done bool
}

// Recv returns the next non-empty content fragment. It returns io.EOF after
// the upstream signals completion; any other error terminates the stream
// without corrupting fragments already delivered.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for {
		var chunk chatChunk
		if err := s.dec.Decode(&chunk); err != nil {
			s.done = true
			if err == io.EOF {
				// Upstream closed without a done marker; treat as clean end.
				return "", io.EOF
			}
			return "", fmt.Errorf("decode chat chunk: %w", err)
		}
		if chunk.Error != "" {
			s.done = true
			return "", fmt.Errorf("upstream error: %s", chunk.Error)
		}
		if chunk.Done {
			s.done = true
			if chunk.Message.Content != "" {
				return chunk.Message.Content, nil
			}
			return "", io.EOF
		}
		if chunk.Message.Content != "" {
			return chunk.Message.Content, nil
		}
	}
}

// Close releases the underlying connection. Safe to call multiple times and
// after Recv returned an error.
func (s *Stream) Close() error {
	s.done = true
	return s.body.Close()
}

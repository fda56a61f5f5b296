// Upstream relay HTTP handlers.
//
// This file exposes the streaming chat proxy and its endpoint configuration:
//   - POST /api/ollama/ask             (relay a chat completion as a stream)
//   - PUT  /api/ollama/endpoint        (validate, probe, and persist a base URL)
//   - GET  /api/ollama/endpoint/check  (probe the effective endpoint)
//
// The relay forwards content fragments to the client as they arrive from
// upstream, flushing after each one. The stream is bound to the request
// context: when the client disconnects, the upstream connection is torn down.
// A mid-stream upstream failure terminates the response; fragments already
// sent are never retracted or retried.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vrmchat/go-chat-backend/internal/http/middleware"
	"github.com/vrmchat/go-chat-backend/internal/ollama"
	"github.com/vrmchat/go-chat-backend/internal/services"
)

//
// DTOs
//

// ChatTurn is one conversational turn in the relay payload, in the upstream
// chat-completion format ("assistant", not "ai").
type ChatTurn struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

// ChatRelayRequest is the JSON payload for a streamed chat completion.
type ChatRelayRequest struct {
	// Model names the upstream model to run.
	Model string `json:"model" binding:"required,min=1"`
	// Messages is the conversation so far, oldest-first.
	Messages []ChatTurn `json:"messages" binding:"required,min=1,dive"`
}

// UpdateEndpointRequest is the JSON payload for configuring the upstream
// base URL.
type UpdateEndpointRequest struct {
	URL string `json:"url" binding:"required,min=1"`
}

// EndpointCheckResponse reports a successful liveness probe.
type EndpointCheckResponse struct {
	Status string `json:"status"`
}

//
// Handlers
//

// RelayChat opens a streaming chat completion against the user's effective
// upstream endpoint and forwards each content fragment to the client as a
// text/event-stream body, flushed per fragment.
//
// Responses:
//   - 200 streamed fragments (connection stays open until upstream finishes)
//   - 400 when the upstream endpoint fails its pre-flight probe
//   - 401 without a valid access token
//   - 500 when the upstream connection cannot be opened
func (h *Handlers) RelayChat(c *gin.Context) {
	ctx := c.Request.Context()
	uid, okUID := middleware.UserID(c)
	if !okUID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
		return
	}

	var req ChatRelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "model and messages required")
		return
	}

	turns := make([]ollama.Turn, 0, len(req.Messages))
	for _, t := range req.Messages {
		turns = append(turns, ollama.Turn{Role: t.Role, Content: t.Content})
	}

	stream, err := h.proxy.Relay(ctx, uid, req.Model, turns)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEndpointUnreachable):
			fail(c, http.StatusBadRequest, ErrCodeInvalidEndpoint, "endpoint unreachable")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeRelayFailed, "internal server error")
		}
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	lg := middleware.LoggerFrom(c)
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			// Headers are long gone; all we can do is stop the stream and
			// leave a trace server-side.
			lg.Error().Err(err).Msg("upstream stream failed")
			return
		}
		if frag == "" {
			continue
		}
		if _, err := c.Writer.WriteString(frag); err != nil {
			// Client went away; context cancellation closes upstream.
			return
		}
		c.Writer.Flush()
		middleware.CountUpstreamFragment()
	}
}

// UpdateEndpoint validates the submitted URL, probes it for liveness, and
// persists it on the user record.
//
// Responses:
//   - 204 on success
//   - 422 when the URL is not a well-formed absolute http(s) URL
//   - 400 when the URL is well-formed but the probe fails
//   - 401 without a valid access token
func (h *Handlers) UpdateEndpoint(c *gin.Context) {
	uid, okUID := middleware.UserID(c)
	if !okUID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
		return
	}

	var req UpdateEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "url required")
		return
	}

	err := h.proxy.UpdateEndpoint(c.Request.Context(), uid, req.URL)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidEndpointURL):
			fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "url must be an absolute http(s) URL")
		case errors.Is(err, services.ErrEndpointUnreachable):
			fail(c, http.StatusBadRequest, ErrCodeInvalidEndpoint, "endpoint unreachable")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		}
		return
	}

	noContent(c)
}

// CheckEndpoint probes the user's effective upstream endpoint. Nothing is
// cached or persisted; the probe is the whole operation.
//
// Responses:
//   - 200 {status: "ok"} when the endpoint answers the probe
//   - 400 when the probe fails or times out
//   - 401 without a valid access token
func (h *Handlers) CheckEndpoint(c *gin.Context) {
	uid, okUID := middleware.UserID(c)
	if !okUID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
		return
	}

	err := h.proxy.CheckEndpoint(c.Request.Context(), uid)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEndpointUnreachable):
			fail(c, http.StatusBadRequest, ErrCodeInvalidEndpoint, "endpoint unreachable")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		}
		return
	}

	ok(c, http.StatusOK, EndpointCheckResponse{Status: "ok"})
}

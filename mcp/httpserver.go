package mcp

import (
	"context"
	"net/http"

	router "github.com/foomo/docserver/server"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// httpRequestKey is a custom context key for storing the original HTTP request
type httpRequestKey struct{}

// httpContextFunc keeps the original HTTP request reachable from tool handlers
func httpContextFunc(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, httpRequestKey{}, r)
}

// HTTPRequestFromContext returns the HTTP request a tool call arrived on, if any.
func HTTPRequestFromContext(ctx context.Context) (*http.Request, bool) {
	req, ok := ctx.Value(httpRequestKey{}).(*http.Request)
	return req, ok
}

// callLogger tags logger with the tool name and, for HTTP calls, the caller's request id and address.
func callLogger(ctx context.Context, logger *zap.Logger, tool string) *zap.Logger {
	logger = logger.With(zap.String("tool", tool))
	req, ok := HTTPRequestFromContext(ctx)
	if !ok {
		return logger
	}
	requestID := router.RequestIDFromContext(req.Context())
	if requestID == "" {
		requestID = req.Header.Get("X-Request-ID")
	}
	return logger.With(
		zap.String("requestID", requestID),
		zap.String("remoteAddr", req.RemoteAddr),
	)
}

// NewHTTPHandler serves the MCP server over streamable HTTP at endpoint.
func NewHTTPHandler(s *server.MCPServer, endpoint string) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s,
		server.WithEndpointPath(endpoint),
		server.WithHTTPContextFunc(httpContextFunc),
	)
}

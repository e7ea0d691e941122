package middleware

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskhive/backend/domain"
)

// TokenResolver converts a bearer token into a verified identity. Implemented
// by the auth use case.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
}

// Auth guards protected routes: it extracts the bearer token, resolves it and
// stamps the identity onto the request. Missing or unresolvable tokens stop
// the request with 401 before any handler runs.
func Auth(resolver TokenResolver, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			// Never trust an identity header supplied by the client.
			ctx.Request.Header.Del("X-User-ID")

			token := extractToken(ctx)
			if token == "" {
				unauthorized(ctx)
				return
			}

			user, err := resolver.Resolve(ctx, token)
			if err != nil {
				logger.Warn("token resolution failed", zap.Error(err))
				unauthorized(ctx)
				return
			}

			ctx.Request.Header.Set("X-User-ID", user.ID)
			next(ctx)
		}
	}
}

func unauthorized(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	body, _ := json.Marshal(map[string]string{"message": "invalid or expired token"})
	ctx.SetBody(body)
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}

package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/taskhive/backend/domain"
)

type stubResolver struct {
	user *domain.User
	err  error
}

func (s *stubResolver) Resolve(ctx context.Context, token string) (*domain.User, error) {
	return s.user, s.err
}

func TestAuthRejectsMissingToken(t *testing.T) {
	called := false
	handler := Auth(&stubResolver{}, nil)(func(ctx *fasthttp.RequestCtx) { called = true })

	ctx := &fasthttp.RequestCtx{}
	handler(ctx)

	require.False(t, called)
	require.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	require.Contains(t, string(ctx.Response.Body()), "invalid or expired token")
}

func TestAuthRejectsUnresolvableToken(t *testing.T) {
	called := false
	resolver := &stubResolver{err: errors.New("boom")}
	handler := Auth(resolver, nil)(func(ctx *fasthttp.RequestCtx) { called = true })

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set("Authorization", "Bearer bad-token")
	handler(ctx)

	require.False(t, called)
	require.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}

func TestAuthStampsResolvedIdentity(t *testing.T) {
	resolver := &stubResolver{user: &domain.User{ID: "user-1"}}
	var seen string
	handler := Auth(resolver, nil)(func(ctx *fasthttp.RequestCtx) {
		seen = string(ctx.Request.Header.Peek("X-User-ID"))
	})

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set("Authorization", "Bearer good-token")
	// A client-supplied identity header must not survive.
	ctx.Request.Header.Set("X-User-ID", "user-666")
	handler(ctx)

	require.Equal(t, "user-1", seen)
}

package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/focusbox/internal/infra/config"
)

const (
	// AdminTokenHeader is the header name for admin authentication token.
	AdminTokenHeader = "X-Admin-Token"
)

var errInvalidToken = errors.New("invalid admin token")

// NewAdminAuthInterceptor creates an interceptor that validates admin tokens
// from request metadata for HostService methods.
func NewAdminAuthInterceptor(cfg *config.Config) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			token := req.Header().Get(AdminTokenHeader)
			if token == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("missing admin token"))
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Admin.Token)) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, errInvalidToken)
			}
			return next(ctx, req)
		}
	}
}

// WithAdminToken sets the admin token header on every unary call of a client.
func WithAdminToken(token string) connect.ClientOption {
	return connect.WithInterceptors(connect.UnaryInterceptorFunc(
		func(next connect.UnaryFunc) connect.UnaryFunc {
			return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
				req.Header().Set(AdminTokenHeader, token)
				return next(ctx, req)
			}
		},
	))
}

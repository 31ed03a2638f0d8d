package tokenmanager

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TokenProvider is the blocking view of a token manager used by the request
// pipelines. *Manager and *BlockingView implement it.
type TokenProvider interface {
	// Token returns the cached token or refreshes when none is cached.
	Token(ctx context.Context) (string, error)

	// Refresh obtains a new token regardless of the cache.
	Refresh(ctx context.Context) (string, error)
}

// UnaryClientInterceptor returns a gRPC unary client interceptor that adds the
// managed token as "authorization" metadata.
//
// If the call fails with codes.Unauthenticated, the token is refreshed once and
// the call is repeated once with the new token; that second result is returned
// as is. The interceptor respects the RPC context's cancellation and deadline.
//
// Usage:
//
//	conn, err := grpc.NewClient(
//	    "server:9090",
//	    grpc.WithUnaryInterceptor(manager.UnaryClientInterceptor()),
//	)
func (m *Manager) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return UnaryClientInterceptor(m)
}

// StreamClientInterceptor returns a gRPC stream client interceptor that adds
// the managed token as "authorization" metadata. Streams are not retried.
func (m *Manager) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return StreamClientInterceptor(m)
}

// UnaryClientInterceptor is the TokenProvider form of Manager.UnaryClientInterceptor.
func UnaryClientInterceptor(tp TokenProvider) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		token, err := tp.Token(ctx)
		if err != nil {
			return fmt.Errorf("tokenmanager: failed to get token: %w", err)
		}

		err = invoker(metadata.AppendToOutgoingContext(ctx, "authorization", token), method, req, reply, cc, opts...)
		if status.Code(err) != codes.Unauthenticated {
			return err
		}

		token, err = tp.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("tokenmanager: failed to refresh token: %w", err)
		}

		return invoker(metadata.AppendToOutgoingContext(ctx, "authorization", token), method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor is the TokenProvider form of Manager.StreamClientInterceptor.
func StreamClientInterceptor(tp TokenProvider) grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		token, err := tp.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("tokenmanager: failed to get token: %w", err)
		}

		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", token)

		return streamer(ctx, desc, cc, method, opts...)
	}
}

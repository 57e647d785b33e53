package server

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// NewGRPC returns a gRPC server exposing the standard health service, plus the
// health server so callers can flip per-agent statuses.
func NewGRPC(logger zerolog.Logger) (*grpc.Server, *health.Server) {
	hs := health.NewServer()
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(loggingInterceptor(logger.With().Str("component", "grpc").Logger())),
	)
	healthpb.RegisterHealthServer(srv, hs)

	// Enable reflection for grpcurl and friends
	reflection.Register(srv)
	return srv, hs
}

// loggingInterceptor logs gRPC requests
func loggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		event := logger.Debug()
		if err != nil {
			event = logger.Warn().Err(err)
		}
		event.
			Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("elapsed", time.Since(start)).
			Msg("gRPC request")
		return resp, err
	}
}

package http

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kyralabs/lib-calltrace/calltrace"
	cn "github.com/kyralabs/lib-calltrace/calltrace/constants"
	"github.com/kyralabs/lib-calltrace/calltrace/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// WithGrpcLogging is a gRPC unary interceptor to log access to gRPC server.
// Incoming metadata goes through the same deny-list masking as HTTP headers.
func WithGrpcLogging(opts ...LogMiddlewareOption) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx = setGRPCRequestHeaderID(ctx)
		headerID := calltrace.HeaderIDFromContext(ctx)

		mid := buildOpts(opts...)
		logger := mid.Logger.
			With(log.String(cn.HeaderID, headerID)).
			With(log.String("message_prefix", headerID+cn.LoggerDefaultSeparator))

		ctx = calltrace.ContextWithLogger(ctx, logger)

		start := time.Now()
		resp, err := handler(ctx, req)
		duration := time.Since(start)

		fields := []log.Field{
			log.String("method", info.FullMethod),
			log.Duration("duration", duration),
			log.Any("metadata", maskedMetadata(ctx)),
		}
		if err != nil {
			fields = append(fields, log.Err(err))
		}

		logger.Log(ctx, log.LevelInfo, "gRPC request finished", fields...)

		return resp, err
	}
}

func setGRPCRequestHeaderID(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		headerID := md.Get(cn.MetadataID)
		if len(headerID) > 0 && !calltrace.IsNilOrEmpty(&headerID[0]) {
			return calltrace.ContextWithHeaderID(ctx, headerID[0])
		}
	}

	// If metadata is not present, or if the header ID is missing or empty, generate a new one.
	return calltrace.ContextWithHeaderID(ctx, uuid.New().String())
}

// maskedMetadata copies the incoming metadata, replacing deny-listed values
// with the fixed mask. Metadata keys are already lowercase per the gRPC spec.
func maskedMetadata(ctx context.Context) map[string]string {
	masked := make(map[string]string)

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return masked
	}

	for key, values := range md {
		value := strings.Join(values, ", ")
		if isDeniedHeader(key) {
			value = cn.HeaderMaskValue
		}

		masked[key] = value
	}

	return masked
}

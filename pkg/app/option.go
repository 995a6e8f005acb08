package app

import (
	"net/http"

	"google.golang.org/grpc"
)

// Option configures the environment run by Run().
type Option func(o *opts)

type opts struct {
	unaryServerInterceptors  []grpc.UnaryServerInterceptor
	streamServerInterceptors []grpc.StreamServerInterceptor
	debugHandlers            map[string]http.Handler
}

// WithUnaryServerInterceptor configures the health gRPC server to use the
// provided interceptor.
//
// Interceptors are evaluated in addition order, and configured interceptors
// are executed after the default interceptors.
func WithUnaryServerInterceptor(interceptor grpc.UnaryServerInterceptor) Option {
	return func(o *opts) {
		o.unaryServerInterceptors = append(o.unaryServerInterceptors, interceptor)
	}
}

// WithStreamServerInterceptor configures the health gRPC server to use the
// provided interceptor.
func WithStreamServerInterceptor(interceptor grpc.StreamServerInterceptor) Option {
	return func(o *opts) {
		o.streamServerInterceptors = append(o.streamServerInterceptors, interceptor)
	}
}

// WithDebugHandler installs an extra handler on the debug listener
func WithDebugHandler(pattern string, handler http.Handler) Option {
	return func(o *opts) {
		if o.debugHandlers == nil {
			o.debugHandlers = make(map[string]http.Handler)
		}
		o.debugHandlers[pattern] = handler
	}
}

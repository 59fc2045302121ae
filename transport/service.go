// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/grpc"

	"github.com/hashicorp/rttd/scheduler"
	"github.com/hashicorp/rttd/structs"
)

// Scheduler is the subset of *scheduler.Scheduler the RPC surface needs.
// Declared as an interface so tests can exercise the handlers against a
// fake without standing up the real run loop.
type Scheduler interface {
	Submit(ws structs.WorkSource, livenessToken structs.LivenessToken, callingPackage, callingFeature string, req *structs.RangingRequest, callback structs.ResultCallback, privileged bool, attribution string) error
	Cancel(ws structs.WorkSource)
	IsAvailable() bool
	Capabilities() structs.Capabilities
}

var _ Scheduler = (*scheduler.Scheduler)(nil)

// Server implements RangingService over gRPC, fanning scheduler result
// callbacks out to whichever StreamResults call named the matching
// liveness token.
type Server struct {
	logger    hclog.Logger
	scheduler Scheduler

	mu      sync.Mutex
	streams map[string]chan *ResultBatch
}

// NewServer wraps sched with the RangingService surface.
func NewServer(logger hclog.Logger, sched Scheduler) *Server {
	return &Server{
		logger:    logger.Named("transport"),
		scheduler: sched,
		streams:   make(map[string]chan *ResultBatch),
	}
}

func (s *Server) subscribe(token string) chan *ResultBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.streams[token]
	if !ok {
		ch = make(chan *ResultBatch, 8)
		s.streams[token] = ch
	}
	return ch
}

func (s *Server) unsubscribe(token string, ch chan *ResultBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streams[token] == ch {
		delete(s.streams, token)
		close(ch)
	}
}

func (s *Server) publish(token string, results []*structs.RangingResult) {
	s.mu.Lock()
	ch, ok := s.streams[token]
	s.mu.Unlock()
	if !ok {
		s.logger.Debug("dropping result batch: no active stream for liveness token", "token", token)
		return
	}
	select {
	case ch <- batchToWire(results):
	default:
		s.logger.Warn("result stream backpressured, dropping batch", "token", token)
	}
}

func (s *Server) startRanging(ctx context.Context, req *StartRangingRequest) (*Ack, error) {
	if req.Request == nil {
		return &Ack{Accepted: false, Error: "request is required"}, nil
	}
	rangingReq, err := req.Request.toStructs()
	if err != nil {
		return &Ack{Accepted: false, Error: err.Error()}, nil
	}

	token := structs.NewLivenessToken(req.LivenessToken)
	ws := req.WorkSource.toStructs()

	err = s.scheduler.Submit(ws, token, req.CallingPackage, req.CallingFeature, rangingReq,
		func(results []*structs.RangingResult) {
			s.publish(req.LivenessToken, results)
		},
		req.Privileged, req.AttributionTag,
	)
	if err != nil {
		return &Ack{Accepted: false, Error: err.Error()}, nil
	}
	return &Ack{Accepted: true}, nil
}

func (s *Server) cancelRanging(ctx context.Context, req *CancelRangingRequest) (*Ack, error) {
	s.scheduler.Cancel(req.WorkSource.toStructs())
	return &Ack{Accepted: true}, nil
}

func (s *Server) isAvailable(ctx context.Context, _ *Empty) (*IsAvailableResponse, error) {
	return &IsAvailableResponse{Available: s.scheduler.IsAvailable()}, nil
}

func (s *Server) getCharacteristics(ctx context.Context, _ *Empty) (*CharacteristicsResponse, error) {
	return capabilitiesToWire(s.scheduler.Capabilities()), nil
}

func (s *Server) streamResults(req *StreamResultsRequest, stream grpc.ServerStream) error {
	if req.LivenessToken == "" {
		return fmt.Errorf("transport: liveness_token is required")
	}
	ch := s.subscribe(req.LivenessToken)
	defer s.unsubscribe(req.LivenessToken, ch)

	for {
		select {
		case batch, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(batch); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}

// serviceDesc is the hand-written analogue of a protoc-generated
// _ServiceDesc: it wires each RPC name to a handler with the exact
// signature grpc.Server expects, bypassing code generation entirely.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "rttd.transport.RangingService",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "StartRanging",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(StartRangingRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				s := srv.(*Server)
				if interceptor == nil {
					return s.startRanging(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/rttd.transport.RangingService/StartRanging"}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return s.startRanging(ctx, req.(*StartRangingRequest))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
		{
			MethodName: "CancelRanging",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(CancelRangingRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				s := srv.(*Server)
				if interceptor == nil {
					return s.cancelRanging(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/rttd.transport.RangingService/CancelRanging"}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return s.cancelRanging(ctx, req.(*CancelRangingRequest))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
		{
			MethodName: "IsAvailable",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(Empty)
				if err := dec(req); err != nil {
					return nil, err
				}
				s := srv.(*Server)
				if interceptor == nil {
					return s.isAvailable(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/rttd.transport.RangingService/IsAvailable"}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return s.isAvailable(ctx, req.(*Empty))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
		{
			MethodName: "GetCharacteristics",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(Empty)
				if err := dec(req); err != nil {
					return nil, err
				}
				s := srv.(*Server)
				if interceptor == nil {
					return s.getCharacteristics(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/rttd.transport.RangingService/GetCharacteristics"}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return s.getCharacteristics(ctx, req.(*Empty))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "StreamResults",
			Handler: func(srv interface{}, stream grpc.ServerStream) error {
				req := new(StreamResultsRequest)
				if err := stream.RecvMsg(req); err != nil {
					return err
				}
				return srv.(*Server).streamResults(req, stream)
			},
			ServerStreams: true,
		},
	},
	Metadata: "rttd/transport/ranging_service.proto",
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package transport

import (
	"net"

	"google.golang.org/grpc"
)

// ServeConfig controls the production entrypoint.
type ServeConfig struct {
	// MaxConnsPerAddr caps concurrent connections from one remote
	// address via go-connlimit. Zero disables the cap.
	MaxConnsPerAddr int
}

// ServeListener wraps lis with the configured connection limit, registers
// RangingService on a new *grpc.Server using the JSON codec, and blocks
// serving until lis is closed or the server is stopped.
func (s *Server) ServeListener(lis net.Listener, cfg ServeConfig) error {
	limited, err := wrapConnLimit(lis, cfg.MaxConnsPerAddr)
	if err != nil {
		return err
	}

	grpcServer := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	grpcServer.RegisterService(&serviceDesc, s)

	s.logger.Info("ranging service listening", "addr", limited.Addr().String())
	return grpcServer.Serve(limited)
}

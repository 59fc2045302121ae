// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Command rttd is the Wi-Fi RTT ranging daemon: it owns the scheduler run
// loop, serves RangingService over gRPC, and exposes the debug shell named
// in spec.md section 6 on a second listener when -debug-addr is set.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	metrics "github.com/armon/go-metrics"
	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/rttd/availability"
	rttdcmd "github.com/hashicorp/rttd/cmd/rttd/command"
	"github.com/hashicorp/rttd/config"
	"github.com/hashicorp/rttd/credential"
	"github.com/hashicorp/rttd/discovery"
	"github.com/hashicorp/rttd/hal"
	halmock "github.com/hashicorp/rttd/hal/mock"
	"github.com/hashicorp/rttd/liveness"
	"github.com/hashicorp/rttd/scheduler"
	"github.com/hashicorp/rttd/telemetry"
	"github.com/hashicorp/rttd/throttle"
	"github.com/hashicorp/rttd/transport"
	"oss.indeed.com/go/libtime"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		rpcAddr     string
		debugAddr   string
		overlayPath string
		maxConns    int
		logLevel    string
	)
	fs := flag.NewFlagSet("rttd", flag.ContinueOnError)
	fs.StringVar(&rpcAddr, "rpc-addr", "127.0.0.1:9400", "RangingService listen address")
	fs.StringVar(&debugAddr, "debug-addr", "", "debug shell listen address (empty disables it)")
	fs.StringVar(&overlayPath, "config", "", "path to a KEY=VALUE config overlay file")
	fs.IntVar(&maxConns, "max-conns-per-addr", 8, "max concurrent RangingService connections per remote address")
	fs.StringVar(&logLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "rttd",
		Level: hclog.LevelFromString(logLevel),
	})

	cfg := config.New()
	if overlayPath != "" {
		f, err := os.Open(overlayPath)
		if err != nil {
			logger.Error("failed to open config overlay", "error", err)
			return 1
		}
		err = cfg.ParseEnv(f)
		f.Close()
		if err != nil {
			logger.Error("failed to parse config overlay", "error", err)
			return 1
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		return 1
	}

	emitter, err := telemetry.New(cfg.ServiceName, []metrics.Label{{Name: "service", Value: cfg.ServiceName}})
	if err != nil {
		logger.Error("failed to start telemetry", "error", err)
		return 1
	}

	// No real ranging driver ships in this module (spec.md's non-goals
	// exclude "a real radio/firmware/IPC implementation"); halmock.New
	// stands in for whatever Controller a deployment supplies.
	controller := hal.NewCachingController(halmock.New())

	clock := libtime.SystemClock()
	policy := throttle.New(clock, cfg.BackgroundExecGapMS, cfg.ExemptPackages, func(int64) bool { return false })
	discResolver := noDiscovery{}
	livenessReg := liveness.New()

	sched := scheduler.New(scheduler.Config{
		Logger:     logger,
		Clock:      scheduler.SystemClock(),
		Controller: controller,
		Discovery:  discResolver,
		Throttle:   policy,
		Liveness:   livenessReg,
		Metrics:    emitter,
		Credential: credential.NoOp(),
		AZMinNTBUS: cfg.AZMinNTBUS,
		AZMaxNTBUS: cfg.AZMaxNTBUS,
	})
	go sched.Run()
	defer sched.Stop()

	monitor := availability.New(logger,
		func() { sched.OnAvailabilityChange(true) },
		func() { sched.OnAvailabilityChange(false) },
	)
	// A real deployment wires controller-presence/idle/location-mode
	// signals into monitor; this entrypoint starts available so the
	// service is immediately usable for manual testing.
	monitor.NoteControllerPresent(true)
	monitor.NoteLocationMode(true)

	server := transport.NewServer(logger, sched)
	lis, err := net.Listen("tcp", rpcAddr)
	if err != nil {
		logger.Error("failed to listen", "addr", rpcAddr, "error", err)
		return 1
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.ServeListener(lis, transport.ServeConfig{MaxConnsPerAddr: maxConns})
	}()

	if debugAddr != "" {
		params := rttdcmd.NewParamSet(sched, policy)
		dlis, err := net.Listen("tcp", debugAddr)
		if err != nil {
			logger.Error("failed to listen on debug address", "addr", debugAddr, "error", err)
			return 1
		}
		go serveDebugShell(logger, dlis, sched, params, errCh)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server exited", "error", err)
			return 1
		}
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	}
	return 0
}

// serveDebugShell accepts one connection at a time on dlis and runs the
// debug shell (spec.md section 6) over it until the connection closes.
func serveDebugShell(logger hclog.Logger, dlis net.Listener, sched *scheduler.Scheduler, params *rttdcmd.ParamSet, errCh chan<- error) {
	for {
		conn, err := dlis.Accept()
		if err != nil {
			errCh <- fmt.Errorf("debug shell listener: %w", err)
			return
		}
		go func() {
			defer conn.Close()
			ui := &cli.BasicUi{Reader: conn, Writer: conn, ErrorWriter: conn}
			if err := rttdcmd.RunShell(conn, ui, sched, params); err != nil {
				logger.Warn("debug shell session ended with error", "error", err)
			}
		}()
	}
}

// noDiscovery is the default discovery.Resolver when no peer-discovery
// subsystem is configured: it reports itself unavailable, so aware-peer
// requests are rejected synchronously at submit time rather than hanging.
type noDiscovery struct{}

func (noDiscovery) Available() bool { return false }

func (noDiscovery) RequestMACAddresses(_ int64, _ []string, callback discovery.MappingCallback) {
	callback(nil)
}

// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/nttcom/dhcp6notify/internal/config"
	"github.com/nttcom/dhcp6notify/internal/pkg/metrics"
	"github.com/nttcom/dhcp6notify/internal/pkg/snapshot"
	"github.com/nttcom/dhcp6notify/internal/pkg/version"
	"github.com/nttcom/dhcp6notify/pkg/logger"
	"github.com/nttcom/dhcp6notify/pkg/notifier"
	"github.com/nttcom/dhcp6notify/pkg/server"
)

type Flags struct {
	ConfigFile string
	Version    bool
}

func main() {
	f := new(Flags)
	flag.StringVar(&f.ConfigFile, "f", "dhcp6notifyd.yaml", "Specify a configuration file")
	flag.BoolVar(&f.Version, "version", false, "Print the version and exit")
	flag.Parse()

	if f.Version {
		fmt.Println("dhcp6notifyd " + version.Version())
		return
	}

	c, err := config.ReadConfigFile(f.ConfigFile)
	if err != nil {
		log.Panic(err)
	}
	if err := os.MkdirAll(c.Global.Log.Path, 0755); err != nil {
		log.Panic(err)
	}
	sink := logger.NewFileSink(logger.FileOptions{
		Filename:   c.Global.Log.LogFile(),
		MaxSize:    c.Global.Log.MaxSize,
		MaxBackups: c.Global.Log.MaxBackups,
		MaxAge:     c.Global.Log.MaxAge,
		Compress:   c.Global.Log.Compress,
	})
	defer sink.Close()

	logger := logger.LogInit(sink, c.Global.Log.Debug)
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	if err := run(c, logger); err != nil {
		logger.Fatal("dhcp6notifyd stopped with error", zap.Error(err))
	}
}

// run serves notifications until SIGINT or SIGTERM. All notifications are
// sent from this goroutine, one at a time.
func run(c *config.Config, logger *zap.Logger) error {
	logger.Info("dhcp6notifyd start", zap.String("version", version.Version()), zap.String("object", c.Global.ObjectName()))

	recorder := metrics.NewRecorder(nil)
	if c.Global.Metrics.Address != "" {
		ms := metrics.NewServer(c.Global.Metrics.Address, c.Global.Metrics.Path, nil, logger)
		if err := ms.Start(); err != nil {
			return err
		}
		defer func() {
			if err := ms.Stop(context.Background()); err != nil {
				logger.Warn("failed to stop metrics server", zap.Error(err))
			}
		}()
	}

	state, err := loadSnapshot(&c.Global.Snapshot)
	if err != nil {
		return err
	}

	bus := server.NewServer(&server.Options{
		GrpcAddr: c.Global.Grpc.Address,
		GrpcPort: c.Global.Grpc.Port,
		Object:   c.Global.ObjectName(),
	}, logger)
	bus.SetSubscriberGauge(recorder)

	assembler := notifier.NewAssembler(state, bus, logger,
		notifier.WithDocumentLimit(c.Global.Document.MaxSize),
		notifier.WithRecorder(recorder),
	)
	bus.SetSource(assembler.Build)

	api := server.NewAPIServer(bus, grpc.NewServer())
	errCh := make(chan error, 1)
	go func() {
		errCh <- api.Serve(c.Global.Grpc.Address, c.Global.Grpc.Port)
	}()
	defer api.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	notify(assembler, notifier.StatusStarted, logger)
	for {
		select {
		case err := <-errCh:
			return fmt.Errorf("gRPC server: %w", err)
		case sig := <-sigCh:
			if sig != syscall.SIGHUP {
				logger.Info("dhcp6notifyd stop", zap.String("signal", sig.String()))
				notify(assembler, notifier.StatusStopped, logger)
				return nil
			}
			next, err := loadSnapshot(&c.Global.Snapshot)
			if err != nil {
				logger.Warn("failed to reload snapshot", zap.Error(err))
				continue
			}
			status := reloadStatus(state.IsBound(), next.IsBound())
			state.Replace(next)
			logger.Info("snapshot reloaded", zap.String("status", status))
			notify(assembler, status, logger)
		}
	}
}

func notify(a *notifier.Assembler, status string, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Notify(ctx, status); err != nil {
		logger.Warn("failed to notify", zap.String("status", status), zap.Error(err))
	}
}

// reloadStatus names the transition between two snapshots.
func reloadStatus(wasBound, bound bool) string {
	if !wasBound && bound {
		return notifier.StatusBound
	}
	return notifier.StatusUpdated
}

// loadSnapshot reads the configured state source. Without one the state
// starts empty.
func loadSnapshot(c *config.Snapshot) (*snapshot.State, error) {
	switch {
	case c.File != "":
		return snapshot.LoadFile(c.File)
	case c.Pcap != "":
		return snapshot.LoadPcap(c.Pcap)
	}
	return snapshot.NewState(), nil
}

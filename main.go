// Command fusiond runs the transform fusion daemon: it seeds the frame
// graph from a deployment config, ingests streaming measurement events over
// UDP, and answers transform queries over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/frame.fusion/internal/api"
	"github.com/banshee-data/frame.fusion/internal/config"
	"github.com/banshee-data/frame.fusion/internal/eventlog"
	"github.com/banshee-data/frame.fusion/internal/fusion"
	"github.com/banshee-data/frame.fusion/internal/ingest"
	"github.com/banshee-data/frame.fusion/internal/service"
	"github.com/banshee-data/frame.fusion/internal/version"
)

var (
	configPath = flag.String("config", "config/seed.yaml", "Seed config file")
	listen     = flag.String("listen", ":8080", "HTTP listen address")
	udpAddr    = flag.String("udp", ":9600", "UDP address for measurement events")
	dbFile     = flag.String("db", "measurements.db", "Measurement event log (empty disables)")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("fusiond %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	graph := fusion.NewGraph()
	if err := cfg.Seed(graph); err != nil {
		log.Fatalf("failed to seed frame graph: %v", err)
	}
	log.Printf("seeded %d frames, %d edges from %s", len(graph.Frames()), graph.EdgeCount(), *configPath)

	var eventLog *eventlog.Log
	if *dbFile != "" {
		eventLog, err = eventlog.Open(*dbFile)
		if err != nil {
			log.Fatalf("failed to open event log: %v", err)
		}
		defer eventLog.Close()
	}

	svc := service.New(graph, service.Config{
		Alpha:             cfg.Fusion.GetAlpha(),
		StaleTimeout:      cfg.Fusion.GetStaleTimeout(),
		DefaultEdgeWeight: cfg.Fusion.GetDefaultEdgeWeight(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenerCfg := ingest.UDPListenerConfig{
		Address: *udpAddr,
		Sink:    svc,
	}
	if eventLog != nil {
		listenerCfg.Recorder = eventLog
	}
	listener := ingest.NewUDPListener(listenerCfg)
	go func() {
		if err := listener.Listen(ctx); err != nil {
			log.Printf("ingest listener stopped: %v", err)
			stop()
		}
	}()

	server := &http.Server{
		Addr:    *listen,
		Handler: api.NewServer(svc, eventLog).Routes(),
	}
	go func() {
		log.Printf("HTTP API listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
}

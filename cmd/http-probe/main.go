package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/engine/manager"
	"HttpSpectra/internal/engine/protocol"
	"HttpSpectra/internal/logging"
	"HttpSpectra/internal/model"
	"HttpSpectra/internal/probe"
	"HttpSpectra/pkg/pcap"
)

func main() {
	// --- Command-Line Flag Parsing ---
	mode := flag.String("mode", "sub", "Operating mode: 'pub' to capture and publish, 'sub' to subscribe and report.")
	iface := flag.String("i", "", "Interface name or IP to capture from (required for pub mode).")
	port := flag.Int("p", 0, "TCP port carrying HTTP traffic (overrides the config).")
	configPath := flag.String("c", "", "Path to the YAML config file.")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			logging.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if err := config.LoadFromEnv(cfg, ".env"); err != nil {
		logging.Fatalf("Failed to apply environment: %v", err)
	}
	if *port != 0 {
		cfg.Analyzer.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatalf("Invalid configuration: %v", err)
	}
	if err := logging.Setup(logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	}); err != nil {
		logging.Fatalf("Failed to set up logging: %v", err)
	}

	// --- Mode Dispatch ---
	switch *mode {
	case "pub":
		runProbe(cfg, *iface)
	case "sub":
		runSubscriber(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runProbe captures on an interface, classifies frames and publishes the
// HTTP events to NATS.
func runProbe(cfg *config.Config, interfaceName string) {
	if interfaceName == "" {
		flag.Usage()
		logging.Fatalf("Error: -i flag is required for pub mode.")
	}
	logging.Infof("Starting http-probe in PUB mode on interface: %s", interfaceName)

	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		logging.Fatalf("Failed to create publisher: %v", err)
	}
	defer pub.Close()

	source, err := pcap.OpenLive(interfaceName, uint16(cfg.Analyzer.Port))
	if err != nil {
		logging.Fatalf("%v", err)
	}
	defer source.Close()

	classifier := protocol.NewClassifier(uint16(cfg.Analyzer.Port))
	logging.Infof("Capture started successfully. Publishing events to '%s'...", cfg.Probe.Subject)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		published := 0
		for packet := range source.Packets() {
			ev := classifier.Classify(packet)
			if ev.Kind == model.EventIgnore {
				continue
			}
			if err := pub.Publish(ev); err != nil {
				logging.Warnf("Failed to publish event: %v", err)
				continue
			}
			published++
			if published%1000 == 0 {
				logging.Infof("%d events published...", published)
			}
		}
	}()

	<-sigChan
	logging.Infof("Shutdown signal received, cleaning up...")
}

// runSubscriber consumes events from NATS into a local aggregator and prints
// the summary on the configured period.
func runSubscriber(cfg *config.Config) {
	logging.Infof("Starting http-probe in SUB mode...")

	m, err := manager.NewManager(cfg, os.Stdout)
	if err != nil {
		logging.Fatalf("Failed to create manager: %v", err)
	}

	sub, err := probe.NewSubscriber(cfg.Probe)
	if err != nil {
		logging.Fatalf("Failed to create subscriber: %v", err)
	}

	m.Start()
	handler := func(ev model.Event) {
		if !m.Submit(ev) {
			logging.Debugf("Manager stopped, discarding %s event", ev.Kind)
		}
	}
	if err := sub.Start(handler); err != nil {
		sub.Close()
		m.Stop()
		logging.Fatalf("Subscriber failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logging.Infof("Shutdown signal received, cleaning up...")

	// Drain first so buffered messages are counted. A handler still running
	// after a drain timeout finds the input closed and drops its event.
	sub.Close()
	if n := sub.Dropped(); n > 0 {
		logging.Warnf("%d undecodable messages were dropped", n)
	}
	m.Stop()
	m.PrintSummary()
}

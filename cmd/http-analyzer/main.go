package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"HttpSpectra/internal/alerter"
	"HttpSpectra/internal/api"
	"HttpSpectra/internal/config"
	"HttpSpectra/internal/engine/manager"
	"HttpSpectra/internal/logging"
	"HttpSpectra/internal/notification"
	"HttpSpectra/internal/query"
	"HttpSpectra/pkg/pcap"

	"github.com/google/gopacket"
)

const (
	version           = "1.0.0"
	defaultConfigPath = "configs/config.yaml"
	dumpSnapLen       = 65535
)

type options struct {
	iface      string
	port       int
	inputFile  string
	outputFile string
	period     int
	noReport   bool
	list       bool
	version    bool
	configPath string
	api        bool
	rates      bool
}

func parseFlags() *options {
	o := &options{}
	flag.StringVar(&o.iface, "i", "", "Interface name or IP address to capture from")
	flag.IntVar(&o.port, "p", 80, "TCP port carrying HTTP traffic")
	flag.StringVar(&o.inputFile, "f", "", "Read frames from a pcap or pcapng file instead of an interface")
	flag.StringVar(&o.outputFile, "o", "", "Save the matching frames to a pcap file")
	flag.IntVar(&o.period, "r", 2, "Report period in seconds")
	flag.BoolVar(&o.noReport, "d", false, "Disable the periodic report")
	flag.BoolVar(&o.list, "l", false, "List the capture interfaces and exit")
	flag.BoolVar(&o.version, "v", false, "Print the version and exit")
	flag.StringVar(&o.configPath, "c", "", "Path to the YAML config file (default "+defaultConfigPath+" when present)")
	flag.BoolVar(&o.api, "api", false, "Serve the REST API, /metrics and the gRPC health service")
	flag.BoolVar(&o.rates, "rates", false, "Print per-second rates with each periodic report")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	if opts.version {
		fmt.Printf("http-analyzer %s\n", version)
		return
	}
	if opts.list {
		if err := listInterfaces(); err != nil {
			logging.Fatalf("Failed to list interfaces: %v", err)
		}
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
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

	if (opts.iface == "") == (opts.inputFile == "") {
		flag.Usage()
		logging.Fatalf("Exactly one of -i (interface) or -f (input file) must be given")
	}

	source, err := openSource(opts, uint16(cfg.Analyzer.Port))
	if err != nil {
		logging.Fatalf("%v", err)
	}

	// A recorded file is read to the end; only the final summary is printed.
	if opts.inputFile != "" {
		cfg.Analyzer.DisableReport = true
	}

	m, err := manager.NewManager(cfg, os.Stdout, manager.WithRates(opts.rates))
	if err != nil {
		source.Close()
		logging.Fatalf("Failed to create manager: %v", err)
	}

	var hook manager.PacketHook
	var dumper *pcap.Dumper
	if cfg.Analyzer.OutputFile != "" {
		dumper, err = pcap.NewDumper(cfg.Analyzer.OutputFile, dumpSnapLen, source.LinkType())
		if err != nil {
			source.Close()
			logging.Fatalf("Could not open pcap file for writing: %v", err)
		}
		hook = func(packet gopacket.Packet) {
			if err := dumper.Write(packet); err != nil {
				logging.Warnf("Failed to save frame: %v", err)
			}
		}
	}

	var (
		apiServer    *api.Server
		healthServer *api.HealthServer
		querier      query.Querier
	)
	if cfg.API.Enabled {
		querier, err = query.NewFromConfig(cfg)
		if err != nil {
			if !errors.Is(err, query.ErrNoBackend) {
				logging.Warnf("History endpoint disabled: %v", err)
			}
			querier = nil
		}
		apiServer = api.NewServer(cfg.API.ListenAddr, m.Aggregator(), querier)
		apiServer.Start()
		healthServer = api.NewHealthServer(cfg.API.GRPCAddr)
		if err := healthServer.Start(); err != nil {
			logging.Errorf("gRPC health server disabled: %v", err)
			healthServer = nil
		}
	}

	var alerts *alerter.Alerter
	if cfg.Alerter.Enabled {
		alerts, err = alerter.NewAlerter(cfg.Alerter, m.Aggregator(), notification.New(cfg.Alerter.SMTP))
		if err != nil {
			logging.Fatalf("Failed to create alerter: %v", err)
		}
	}

	m.Start()
	if alerts != nil {
		alerts.Start()
	}
	if healthServer != nil {
		healthServer.SetServing(true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.inputFile != "" {
		logging.Infof("Reading frames from '%s'...", opts.inputFile)
	} else {
		logging.Infof("Capturing on '%s', press Ctrl-C to stop.", opts.iface)
	}
	m.Consume(ctx, source.Packets(), hook)

	source.Close()
	m.Stop()
	if alerts != nil {
		alerts.Stop()
	}
	if healthServer != nil {
		healthServer.SetServing(false)
	}
	if dumper != nil {
		logging.Infof("Saved %d frames to '%s'", dumper.Count(), cfg.Analyzer.OutputFile)
		if err := dumper.Close(); err != nil {
			logging.Warnf("Failed to close pcap output: %v", err)
		}
	}

	m.PrintSummary()

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logging.Warnf("API server forced to shutdown: %v", err)
		}
		cancel()
	}
	if healthServer != nil {
		healthServer.Stop()
	}
	if querier != nil {
		querier.Close()
	}
}

// loadConfig builds the effective configuration: defaults, then the YAML file,
// then HTTPSPECTRA_* variables, then the flags given on the command line.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	path := opts.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := config.LoadFromEnv(cfg, ".env"); err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			cfg.Analyzer.Port = opts.port
		case "r":
			cfg.Analyzer.ReportInterval = fmt.Sprintf("%ds", opts.period)
		case "d":
			cfg.Analyzer.DisableReport = opts.noReport
		case "o":
			cfg.Analyzer.OutputFile = opts.outputFile
		case "api":
			cfg.API.Enabled = opts.api
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openSource(opts *options, port uint16) (pcap.Source, error) {
	if opts.inputFile != "" {
		reader, err := pcap.NewReader(opts.inputFile)
		if err != nil {
			return nil, fmt.Errorf("could not open input pcap file: %w", err)
		}
		return reader, nil
	}
	live, err := pcap.OpenLive(opts.iface, port)
	if err != nil {
		return nil, fmt.Errorf("could not open the device: %w", err)
	}
	return live, nil
}

func listInterfaces() error {
	ifaces, err := pcap.ListInterfaces()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("Network interfaces:")
	for _, iface := range ifaces {
		fmt.Println(pcap.FormatInterface(iface))
	}
	fmt.Println()
	return nil
}

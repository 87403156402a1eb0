package manager

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/engine/protocol"
	"HttpSpectra/internal/engine/stats"
	"HttpSpectra/internal/factory"
	"HttpSpectra/internal/logging"
	"HttpSpectra/internal/model"
	_ "HttpSpectra/internal/writer" // Registers snapshot writers

	"github.com/google/gopacket"
)

// PacketHook is called for every frame the classifier accepted.
type PacketHook func(packet gopacket.Packet)

// Manager wires the classifier, the aggregator, the periodic report and the
// snapshot writers of one capture session.
type Manager struct {
	classifier *protocol.Classifier
	aggregator *stats.Aggregator
	reporter   *stats.Reporter
	writers    []model.Writer
	out        io.Writer

	// A single worker drains the channel so events are ingested in arrival
	// order; correlation depends on it.
	eventChannel chan model.Event
	workerWg     sync.WaitGroup
	// inputMu guards sends on eventChannel against its close in Stop.
	inputMu     sync.RWMutex
	inputClosed bool

	reportPeriod  time.Duration
	reportEnabled bool
	detailed      bool
	rates         bool

	done          chan struct{}
	reporterWg    sync.WaitGroup
	snapshotterWg sync.WaitGroup

	running  atomic.Bool
	seen     atomic.Uint64
	matched  atomic.Uint64
	stopOnce sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithWriters replaces the writers built from the config.
func WithWriters(writers ...model.Writer) Option {
	return func(m *Manager) {
		m.writers = writers
	}
}

// WithRates adds the per-second rate lines to each periodic report.
func WithRates(enabled bool) Option {
	return func(m *Manager) {
		m.rates = enabled
	}
}

// NewManager creates a Manager that prints its reports to out.
func NewManager(cfg *config.Config, out io.Writer, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	period, err := cfg.ReportPeriod()
	if err != nil {
		return nil, err
	}
	correlator, err := stats.NewCorrelator(cfg.Analyzer.Correlator)
	if err != nil {
		return nil, err
	}
	writers, err := factory.CreateWriters(cfg)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		classifier:    protocol.NewClassifier(uint16(cfg.Analyzer.Port)),
		aggregator:    stats.NewAggregator(stats.WithCorrelator(correlator)),
		reporter:      stats.NewReporter(),
		writers:       writers,
		out:           out,
		eventChannel:  make(chan model.Event, cfg.Analyzer.SizeOfEventChannel),
		reportPeriod:  period,
		reportEnabled: !cfg.Analyzer.DisableReport,
		detailed:      cfg.Analyzer.Detailed,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start launches the ingest worker, the report loop and one snapshotter per writer.
func (m *Manager) Start() {
	m.workerWg.Add(1)
	go m.worker()

	if m.reportEnabled {
		m.reporterWg.Add(1)
		go m.runReporter()
		logging.Infof("Started reporter with period %s", m.reportPeriod)
	}

	for _, w := range m.writers {
		m.snapshotterWg.Add(1)
		go m.runSnapshotter(w)
		logging.Infof("Started snapshotter for writer '%s' with interval %s", w.Name(), w.GetInterval())
	}

	m.running.Store(true)
	logging.Infof("Manager started, watching TCP port %d", m.classifier.Port())
}

func (m *Manager) worker() {
	defer m.workerWg.Done()
	for ev := range m.eventChannel {
		m.aggregator.Ingest(ev)
	}
}

// runReporter prints the summary on every tick.
func (m *Manager) runReporter() {
	defer m.reporterWg.Done()
	ticker := time.NewTicker(m.reportPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.report()
		case <-m.done:
			return
		}
	}
}

func (m *Manager) report() {
	var lines []string
	if m.rates {
		lines = append(lines, m.reporter.ReportRates(m.aggregator)...)
	}
	lines = append(lines, m.reporter.Report(m.aggregator)...)
	m.printLines(lines)
}

// runSnapshotter runs a dedicated snapshot loop for a single writer.
func (m *Manager) runSnapshotter(writer model.Writer) {
	defer m.snapshotterWg.Done()
	interval := writer.GetInterval()
	if interval <= 0 {
		logging.Warnf("Invalid interval %s for writer '%s', snapshotter will not run.", interval, writer.Name())
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.takeSnapshot(writer)
		case <-m.done:
			m.takeSnapshot(writer)
			return
		}
	}
}

func (m *Manager) takeSnapshot(writer model.Writer) {
	snapshot := m.aggregator.Snapshot()
	if err := writer.Write(snapshot, snapshot.TakenAt); err != nil {
		logging.Errorf("Error writing snapshot with writer '%s': %v", writer.Name(), err)
	}
}

// Submit queues an event classified elsewhere, such as by the NATS
// subscriber. It blocks while the queue is full and returns false once Stop
// has closed the input, in which case ev is discarded.
func (m *Manager) Submit(ev model.Event) bool {
	m.inputMu.RLock()
	defer m.inputMu.RUnlock()
	if m.inputClosed {
		return false
	}
	m.eventChannel <- ev
	return true
}

// HandlePacket classifies one frame and queues the resulting event. It
// reports whether the frame was an HTTP request or response.
func (m *Manager) HandlePacket(packet gopacket.Packet) bool {
	m.seen.Add(1)
	ev := m.classifier.Classify(packet)
	if ev.Kind == model.EventIgnore {
		return false
	}
	if !m.Submit(ev) {
		return false
	}
	m.matched.Add(1)
	return true
}

// Consume feeds frames from packets until the channel closes or ctx is done.
// hook, when set, sees every accepted frame.
func (m *Manager) Consume(ctx context.Context, packets <-chan gopacket.Packet, hook PacketHook) {
	for {
		select {
		case <-ctx.Done():
			return
		case packet, ok := <-packets:
			if !ok {
				return
			}
			if m.HandlePacket(packet) && hook != nil {
				hook(packet)
			}
		}
	}
}

// Stop drains the queued events, takes the final snapshots and closes the writers.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		logging.Infof("Manager stopping...")
		m.inputMu.Lock()
		m.inputClosed = true
		close(m.eventChannel)
		m.inputMu.Unlock()
		m.workerWg.Wait()

		close(m.done)
		m.reporterWg.Wait()
		m.snapshotterWg.Wait()

		for _, w := range m.writers {
			if err := w.Close(); err != nil {
				logging.Warnf("Failed to close writer '%s': %v", w.Name(), err)
			}
		}
		m.running.Store(false)
		logging.Infof("Manager stopped. %d frames seen, %d HTTP messages counted.", m.seen.Load(), m.matched.Load())
	})
}

// PrintSummary prints the current summary, and the hostname, method, status
// and content type tables when detailed output is on.
func (m *Manager) PrintSummary() {
	snapshot := m.aggregator.Snapshot()
	lines := stats.RenderSummary(snapshot, m.reporter.Previous())
	if m.detailed {
		for _, table := range [][]string{
			stats.RenderHostnames(snapshot),
			stats.RenderMethods(snapshot),
			stats.RenderStatusCodes(snapshot),
			stats.RenderContentTypes(snapshot),
		} {
			lines = append(lines, "")
			lines = append(lines, table...)
		}
	}
	m.printLines(lines)
}

func (m *Manager) printLines(lines []string) {
	if m.out == nil {
		return
	}
	for _, line := range lines {
		fmt.Fprintln(m.out, line)
	}
	fmt.Fprintln(m.out)
}

// Aggregator returns the session's aggregator.
func (m *Manager) Aggregator() *stats.Aggregator {
	return m.aggregator
}

// Running reports whether the manager is between Start and Stop.
func (m *Manager) Running() bool {
	return m.running.Load()
}

// Counts returns the frames seen and the frames counted as HTTP messages.
func (m *Manager) Counts() (seen, matched uint64) {
	return m.seen.Load(), m.matched.Load()
}

package alerter

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/logging"
	"HttpSpectra/internal/model"
	"HttpSpectra/internal/notification"
)

// Source supplies the snapshots the rules are evaluated against.
type Source interface {
	Snapshot() model.Snapshot
}

// Alerter evaluates host counters against threshold rules on a fixed
// interval and sends one consolidated notification per check. Counters only
// grow, so each rule fires at most once per host.
type Alerter struct {
	source        Source
	rules         []config.AlerterRule
	notifier      notification.Notifier
	checkInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup

	mu    sync.Mutex
	fired map[string]struct{}
}

// NewAlerter creates a new Alerter instance.
func NewAlerter(cfg config.AlerterConfig, source Source, notifier notification.Notifier) (*Alerter, error) {
	interval, err := time.ParseDuration(cfg.CheckInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid check_interval for alerter: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("check_interval must be positive")
	}
	return &Alerter{
		source:        source,
		rules:         cfg.Rules,
		notifier:      notifier,
		checkInterval: interval,
		stopChan:      make(chan struct{}),
		fired:         make(map[string]struct{}),
	}, nil
}

// Start begins the periodic evaluation of alert rules in the background.
func (a *Alerter) Start() {
	logging.Infof("Alerter started with %d rule(s), checking every %s", len(a.rules), a.checkInterval)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				a.Check()
			case <-a.stopChan:
				return
			}
		}
	}()
}

// Stop ends the loop and runs one last check.
func (a *Alerter) Stop() {
	logging.Infof("Stopping Alerter...")
	close(a.stopChan)
	a.wg.Wait()
	a.Check()
}

// Check evaluates every rule once and returns the messages that fired.
func (a *Alerter) Check() []string {
	snapshot := a.source.Snapshot()

	a.mu.Lock()
	var messages []string
	for _, rule := range a.rules {
		for _, h := range matchingHosts(snapshot, rule) {
			value := metricValue(h, rule.Metric)
			if value <= rule.Threshold {
				continue
			}
			key := rule.Name + "\x00" + h.Host
			if _, done := a.fired[key]; done {
				continue
			}
			a.fired[key] = struct{}{}
			messages = append(messages, fmt.Sprintf("[%s] host '%s': %s is %d, threshold %d",
				rule.Name, h.Host, rule.Metric, value, rule.Threshold))
		}
	}
	a.mu.Unlock()

	if len(messages) == 0 {
		return nil
	}
	sort.Strings(messages)
	logging.Infof("Alerter evaluation completed. %d alert(s) triggered.", len(messages))

	if a.notifier != nil {
		subject := fmt.Sprintf("HttpSpectra Alert Summary (%d Triggered)", len(messages))
		body := "The following alerts were triggered during the last check:\n\n" + strings.Join(messages, "\n") + "\n"
		if err := a.notifier.Send(subject, body); err != nil {
			logging.Errorf("Failed to send alert notification: %v", err)
		}
	}
	return messages
}

func matchingHosts(s model.Snapshot, rule config.AlerterRule) []model.HostStats {
	if rule.Host == "" {
		return s.HostList()
	}
	if !s.HasHost(rule.Host) {
		return nil
	}
	return []model.HostStats{s.Host(rule.Host)}
}

func metricValue(h model.HostStats, metric string) uint64 {
	switch metric {
	case config.MetricOutBytes:
		return h.OutBytes
	case config.MetricInBytes:
		return h.InBytes
	case config.MetricTotalBytes:
		return h.TotalBytes()
	case config.MetricOutMessages:
		return h.OutMessages
	case config.MetricInMessages:
		return h.InMessages
	case config.MetricTotalPackets:
		return h.TotalPackets()
	}
	return 0
}

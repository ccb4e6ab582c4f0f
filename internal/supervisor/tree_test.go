package supervisor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/accelerated-industries/loginguard/internal/clock"
	"github.com/accelerated-industries/loginguard/internal/config"
	"github.com/accelerated-industries/loginguard/internal/guard"
	"github.com/accelerated-industries/loginguard/internal/jail"
	"github.com/accelerated-industries/loginguard/internal/logging"
	"github.com/accelerated-industries/loginguard/internal/metrics"
)

// countingService runs until cancelled, failing the first failures times
type countingService struct {
	name     string
	starts   atomic.Int32
	failures int32
}

func (s *countingService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	if n <= s.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string {
	return s.name
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNewTreeAppliesDefaults(t *testing.T) {
	tree := NewTree(logging.Nop(), TreeConfig{})

	if tree.config != DefaultTreeConfig() {
		t.Errorf("Expected default config, got %+v", tree.config)
	}

	tree = NewTree(logging.Nop(), TreeConfig{FailureThreshold: 2, ShutdownTimeout: time.Second})
	if tree.config.FailureThreshold != 2 || tree.config.ShutdownTimeout != time.Second {
		t.Errorf("Explicit values should be kept, got %+v", tree.config)
	}
	if tree.config.FailureDecay != 30 {
		t.Errorf("Expected default FailureDecay 30, got %v", tree.config.FailureDecay)
	}
}

func TestTreeStartsAndStops(t *testing.T) {
	tree := NewTree(logging.Nop(), TreeConfig{ShutdownTimeout: time.Second})

	guardSvc := &countingService{name: "guard-svc"}
	apiSvc := &countingService{name: "api-svc"}
	tree.AddGuardService(guardSvc)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitFor(t, func() bool { return guardSvc.starts.Load() == 1 && apiSvc.starts.Load() == 1 })
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Tree did not shut down in time")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("Failed to get unstopped report: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("Expected every service to stop, got %v", report)
	}
}

func TestTreeRestartsFailedService(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger("json", "trace", &buf)

	tree := NewTree(logger, TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	flaky := &countingService{name: "flaky", failures: 2}
	tree.AddGuardService(flaky)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitFor(t, func() bool { return flaky.starts.Load() >= 3 })
	cancel()
	<-errCh

	if !strings.Contains(buf.String(), `"component":"supervisor"`) {
		t.Errorf("Expected supervisor events in log, got %s", buf.String())
	}
}

func TestTreeRunsSweeperAndReaper(t *testing.T) {
	cfg := config.Default()
	cfg.Guard.InvestigationLifespan = 20 * time.Millisecond
	cfg.Guard.SweepInterval = 5 * time.Millisecond

	// Real time: the services tick on wall-clock tickers
	clk := clock.System{}
	j := jail.New(clk, logging.Nop())
	g := guard.New(cfg.Guard, clk, j, logging.Nop())

	g.Detector.IsScriptedLogin("203.0.113.1")
	g.Detector.IsScriptedLogin("203.0.113.1")
	j.SendToJail("203.0.113.1_brute_forcing_login", 10*time.Millisecond)

	if g.Store.Count() != 1 {
		t.Fatalf("Expected 1 investigation, got %d", g.Store.Count())
	}

	tree := NewTree(logging.Nop(), TreeConfig{ShutdownTimeout: time.Second})
	tree.AddGuardService(g.Sweeper)
	tree.AddGuardService(jail.NewReaper(j, 5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	defer func() {
		cancel()
		<-errCh
	}()

	waitFor(t, func() bool { return g.Store.Count() == 0 })
	waitFor(t, func() bool { return testutil.ToFloat64(metrics.Inmates) == 0 })
}

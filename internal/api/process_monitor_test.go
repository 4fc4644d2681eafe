package api

import (
	"os"
	"sync"
	"testing"
	"time"
)

func TestProcessMonitorInitialization(t *testing.T) {
	shutdownCalled := false
	shutdown := func() { shutdownCalled = true }

	monitor := NewProcessMonitor(shutdown, nil)

	if monitor.parentPID != os.Getppid() {
		t.Errorf("expected parent PID %d, got %d", os.Getppid(), monitor.parentPID)
	}
	if monitor.checkInterval != 2*time.Second {
		t.Errorf("expected check interval 2s, got %v", monitor.checkInterval)
	}
	if monitor.shutdownFunc == nil {
		t.Error("expected shutdown function to be set")
	}
	if shutdownCalled {
		t.Error("shutdown should not be called during initialization")
	}
}

func TestProcessMonitorGracefulStop(t *testing.T) {
	shutdownCalled := false
	shutdown := func() { shutdownCalled = true }

	monitor := NewProcessMonitor(shutdown, nil)
	monitor.Start()
	time.Sleep(100 * time.Millisecond)
	monitor.Stop()
	time.Sleep(100 * time.Millisecond)

	if shutdownCalled {
		t.Error("shutdown should not be called when stopping gracefully")
	}
}

func TestProcessMonitorShutdownCallback(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	var mu sync.Mutex
	shutdownCalled := false
	shutdown := func() {
		mu.Lock()
		shutdownCalled = true
		mu.Unlock()
		wg.Done()
	}

	monitor := NewProcessMonitor(shutdown, nil)
	monitor.checkInterval = 10 * time.Millisecond
	monitor.parentPID = 99999 // simulate a dead parent

	monitor.Start()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for shutdown callback")
	}

	mu.Lock()
	defer mu.Unlock()
	if !shutdownCalled {
		t.Error("expected shutdown to be called when parent PID changes")
	}
}

func TestProcessMonitorMultipleStops(t *testing.T) {
	monitor := NewProcessMonitor(func() {}, nil)
	monitor.Start()
	time.Sleep(50 * time.Millisecond)

	monitor.Stop()
	monitor.Stop()
	monitor.Stop()
}

func TestProcessMonitorStopBeforeStart(t *testing.T) {
	monitor := NewProcessMonitor(func() {}, nil)
	monitor.Stop()
}

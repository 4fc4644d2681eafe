package api

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

// ProcessMonitor watches the parent process and triggers shutdown when it
// dies. This prevents an orphaned kmserve process when the host that
// launched it (a GUI frontend, a supervisor) crashes or is force-quit
// without the session server getting a termination signal.
type ProcessMonitor struct {
	parentPID     int
	checkInterval time.Duration
	shutdownFunc  func()
	logger        *slog.Logger
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewProcessMonitor creates a monitor that calls shutdownFunc when the
// parent process dies. The parent PID is captured at creation time via
// os.Getppid().
func NewProcessMonitor(shutdownFunc func(), logger *slog.Logger) *ProcessMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessMonitor{
		parentPID:     os.Getppid(),
		checkInterval: 2 * time.Second,
		shutdownFunc:  shutdownFunc,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start begins monitoring the parent process in a background goroutine.
func (pm *ProcessMonitor) Start() {
	go pm.monitorLoop()
}

// Stop gracefully stops the monitor goroutine. Safe to call multiple
// times — only the first call has an effect.
func (pm *ProcessMonitor) Stop() {
	pm.stopOnce.Do(func() {
		close(pm.stopChan)
	})
}

// monitorLoop periodically checks whether the parent PID has changed; the
// OS re-parents an orphan (typically to PID 1), which is how a dead parent
// is detected without relying on a signal from it.
func (pm *ProcessMonitor) monitorLoop() {
	ticker := time.NewTicker(pm.checkInterval)
	defer ticker.Stop()

	pm.logger.Info("process monitor started", "parent_pid", pm.parentPID, "interval", pm.checkInterval)

	for {
		select {
		case <-ticker.C:
			currentPPID := os.Getppid()
			if currentPPID != pm.parentPID {
				pm.logger.Warn("parent process died, shutting down", "old_ppid", pm.parentPID, "new_ppid", currentPPID)
				pm.shutdownFunc()
				return
			}
		case <-pm.stopChan:
			pm.logger.Info("process monitor stopped")
			return
		}
	}
}

package workers

import (
	"context"
	"rientro/interfaces"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CleanupWorker ages out terminal trips and stale notification log entries.
// It carries no decision logic; each run deletes everything past the
// retention cutoff in one batch per collection.
type CleanupWorker struct {
	// Dependencies
	tripRepo         interfaces.TripStore
	notificationRepo interfaces.NotificationStore

	// Worker configuration
	config CleanupWorkerConfig

	// Worker state
	isRunning bool
	mutex     sync.RWMutex

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	stats      CleanupWorkerStats
	statsMutex sync.RWMutex
}

type CleanupWorkerConfig struct {
	RetentionDays int           `json:"retentionDays"`
	Interval      time.Duration `json:"interval"`
}

type CleanupWorkerStats struct {
	RunsExecuted         int64     `json:"runsExecuted"`
	RunsFailed           int64     `json:"runsFailed"`
	TripsCleaned         int64     `json:"tripsCleaned"`
	NotificationsCleaned int64     `json:"notificationsCleaned"`
	LastCleanupAt        time.Time `json:"lastCleanupAt"`
	StartTime            time.Time `json:"startTime"`
}

func NewCleanupWorker(tripRepo interfaces.TripStore, notificationRepo interfaces.NotificationStore, config CleanupWorkerConfig) *CleanupWorker {
	ctx, cancel := context.WithCancel(context.Background())

	if config.RetentionDays <= 0 {
		config.RetentionDays = 30
	}
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}

	return &CleanupWorker{
		tripRepo:         tripRepo,
		notificationRepo: notificationRepo,
		config:           config,
		ctx:              ctx,
		cancel:           cancel,
		stats: CleanupWorkerStats{
			StartTime: time.Now(),
		},
	}
}

func (cw *CleanupWorker) Start() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if cw.isRunning {
		return nil
	}

	cw.isRunning = true

	logrus.Infof("Starting Cleanup Worker (retention %d days)", cw.config.RetentionDays)

	cw.wg.Add(1)
	go cw.loop()

	return nil
}

func (cw *CleanupWorker) Stop() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if !cw.isRunning {
		return nil
	}

	logrus.Info("Stopping Cleanup Worker...")

	cw.cancel()
	cw.isRunning = false
	cw.wg.Wait()

	logrus.Info("Cleanup Worker stopped")
	return nil
}

func (cw *CleanupWorker) GetStats() CleanupWorkerStats {
	cw.statsMutex.RLock()
	defer cw.statsMutex.RUnlock()
	return cw.stats
}

func (cw *CleanupWorker) loop() {
	defer cw.wg.Done()

	ticker := time.NewTicker(cw.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cw.RunCleanup(cw.ctx, time.Now())

		case <-cw.ctx.Done():
			return
		}
	}
}

// RunCleanup deletes terminal trips and notification records older than the
// retention cutoff.
func (cw *CleanupWorker) RunCleanup(ctx context.Context, now time.Time) {
	cutoff := now.AddDate(0, 0, -cw.config.RetentionDays)

	tripsDeleted, err := cw.tripRepo.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		logrus.Errorf("Cleanup failed to delete old trips: %v", err)
		cw.statsMutex.Lock()
		cw.stats.RunsFailed++
		cw.statsMutex.Unlock()
		return
	}

	notificationsDeleted, err := cw.notificationRepo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		logrus.Errorf("Cleanup failed to delete old notifications: %v", err)
		cw.statsMutex.Lock()
		cw.stats.RunsFailed++
		cw.statsMutex.Unlock()
		return
	}

	cw.statsMutex.Lock()
	cw.stats.RunsExecuted++
	cw.stats.TripsCleaned += tripsDeleted
	cw.stats.NotificationsCleaned += notificationsDeleted
	cw.stats.LastCleanupAt = time.Now()
	cw.statsMutex.Unlock()

	logrus.Infof("Cleaned up %d old trips and %d old notifications", tripsDeleted, notificationsDeleted)
}

package workers

import (
	"context"
	"rientro/interfaces"
	"rientro/models"
	"rientro/services"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// SweepWorker periodically walks every open trip, asks the escalation
// evaluator whether the urgency must increase, persists the change with a
// conditional write and triggers the resulting notifications. There is one
// shared cadence for all trips; no per-trip timers exist.
type SweepWorker struct {
	// Dependencies
	tripRepo    interfaces.TripStore
	evaluator   *services.EscalationService
	dispatcher  *services.DispatchService
	tripService *services.TripService
	redis       *redis.Client

	// Worker configuration
	config SweepWorkerConfig

	// Worker state
	isRunning bool
	mutex     sync.RWMutex

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	stats      SweepWorkerStats
	statsMutex sync.RWMutex
}

type SweepWorkerConfig struct {
	Interval    time.Duration `json:"interval"`
	Workers     int           `json:"workers"`
	TripTimeout time.Duration `json:"tripTimeout"`
	LockTTL     time.Duration `json:"lockTTL"`
}

type SweepWorkerStats struct {
	SweepsRun      int64     `json:"sweepsRun"`
	SweepsSkipped  int64     `json:"sweepsSkipped"`
	TripsChecked   int64     `json:"tripsChecked"`
	TripsEscalated int64     `json:"tripsEscalated"`
	TripsConflicts int64     `json:"tripsConflicts"`
	TripsFailed    int64     `json:"tripsFailed"`
	RemindersSent  int64     `json:"remindersSent"`
	LastSweepAt    time.Time `json:"lastSweepAt"`
	StartTime      time.Time `json:"startTime"`
}

const sweepLockKey = "sweep:leader"

func NewSweepWorker(
	tripRepo interfaces.TripStore,
	evaluator *services.EscalationService,
	dispatcher *services.DispatchService,
	tripService *services.TripService,
	redisClient *redis.Client,
	config SweepWorkerConfig,
) *SweepWorker {
	ctx, cancel := context.WithCancel(context.Background())

	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	if config.Workers <= 0 {
		config.Workers = 8
	}
	if config.TripTimeout <= 0 {
		config.TripTimeout = 15 * time.Second
	}
	if config.LockTTL <= 0 {
		config.LockTTL = config.Interval - 30*time.Second
		if config.LockTTL <= 0 {
			config.LockTTL = config.Interval
		}
	}

	return &SweepWorker{
		tripRepo:    tripRepo,
		evaluator:   evaluator,
		dispatcher:  dispatcher,
		tripService: tripService,
		redis:       redisClient,
		config:      config,
		ctx:         ctx,
		cancel:      cancel,
		stats: SweepWorkerStats{
			StartTime: time.Now(),
		},
	}
}

func (sw *SweepWorker) Start() error {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	if sw.isRunning {
		return nil
	}

	sw.isRunning = true

	logrus.Infof("Starting Sweep Worker (interval %v, %d workers)", sw.config.Interval, sw.config.Workers)

	sw.wg.Add(1)
	go sw.loop()

	return nil
}

func (sw *SweepWorker) Stop() error {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	if !sw.isRunning {
		return nil
	}

	logrus.Info("Stopping Sweep Worker...")

	sw.cancel()
	sw.isRunning = false
	sw.wg.Wait()

	logrus.Info("Sweep Worker stopped")
	return nil
}

func (sw *SweepWorker) GetStats() SweepWorkerStats {
	sw.statsMutex.RLock()
	defer sw.statsMutex.RUnlock()
	return sw.stats
}

func (sw *SweepWorker) loop() {
	defer sw.wg.Done()

	ticker := time.NewTicker(sw.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.RunSweep(sw.ctx, time.Now())

		case <-sw.ctx.Done():
			return
		}
	}
}

// RunSweep executes one full pass over all open trips. A top-level store
// failure ends the invocation without side effects; the next tick retries
// naturally.
func (sw *SweepWorker) RunSweep(ctx context.Context, now time.Time) {
	if !sw.acquireLock(ctx) {
		logrus.Debug("Sweep skipped: another instance holds the leader lock")
		sw.statsMutex.Lock()
		sw.stats.SweepsSkipped++
		sw.statsMutex.Unlock()
		return
	}

	trips, err := sw.tripRepo.ListByStatus(ctx, []string{models.TripStatusActive, models.TripStatusLate})
	if err != nil {
		logrus.Errorf("Sweep aborted, failed to list open trips: %v", err)
		return
	}

	jobs := make(chan models.Trip)
	var wg sync.WaitGroup

	for i := 0; i < sw.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for trip := range jobs {
				sw.processTrip(ctx, trip, now)
			}
		}()
	}

	for _, trip := range trips {
		jobs <- trip
	}
	close(jobs)
	wg.Wait()

	sw.statsMutex.Lock()
	sw.stats.SweepsRun++
	sw.stats.TripsChecked += int64(len(trips))
	sw.stats.LastSweepAt = time.Now()
	sw.statsMutex.Unlock()

	logrus.Infof("Sweep complete, checked %d open trips", len(trips))
}

// processTrip evaluates and escalates a single trip. Failures are isolated:
// a bad trip never aborts the sweep of the remaining ones.
func (sw *SweepWorker) processTrip(parent context.Context, trip models.Trip, now time.Time) {
	ctx, cancel := context.WithTimeout(parent, sw.config.TripTimeout)
	defer cancel()

	result := sw.evaluator.Evaluate(&trip, now)
	if !result.Changed {
		return
	}

	// Persist before notifying: a crash after this write risks a missed
	// notification but never a double escalation on the next sweep.
	ok, err := sw.tripRepo.UpdateState(ctx, trip.ID.Hex(), trip.Status, trip.EscalationLevel, result.Status, result.Level)
	if err != nil {
		logrus.Errorf("Sweep failed to persist trip %s: %v", trip.ID.Hex(), err)
		sw.statsMutex.Lock()
		sw.stats.TripsFailed++
		sw.statsMutex.Unlock()
		return
	}
	if !ok {
		// Another writer changed the trip since our read.
		logrus.Debugf("Sweep skipped trip %s: state changed concurrently", trip.ID.Hex())
		sw.statsMutex.Lock()
		sw.stats.TripsConflicts++
		sw.statsMutex.Unlock()
		return
	}

	sw.statsMutex.Lock()
	sw.stats.TripsEscalated++
	sw.statsMutex.Unlock()

	logrus.WithFields(logrus.Fields{
		"tripId": trip.ID.Hex(),
		"status": result.Status,
		"level":  result.Level,
	}).Info("Trip escalated")

	// Soft and urgent levels only nudge the traveler. The emergency alert to
	// contacts is raised by the update hook below, the single place every
	// EMERGENCY writer goes through.
	if result.Level > models.EscalationNone && result.Level < models.EscalationEmergency {
		if err := sw.dispatcher.SendCheckInReminder(ctx, trip.OwnerID.Hex(), trip.ID.Hex(), trip.SilentMode); err != nil {
			logrus.Errorf("Check-in reminder for trip %s failed: %v", trip.ID.Hex(), err)
		} else if !trip.SilentMode {
			sw.statsMutex.Lock()
			sw.stats.RemindersSent++
			sw.statsMutex.Unlock()
		}
	}

	after := trip.Snapshot()
	after.Status = result.Status
	after.EscalationLevel = result.Level

	if err := sw.tripService.HandleTripUpdated(ctx, &trip, &after); err != nil {
		logrus.Errorf("Update hook for trip %s failed: %v", trip.ID.Hex(), err)
	}
}

// acquireLock elects a sweep leader via Redis so two instances never run the
// same sweep. Without Redis (tests, single-node dev) the sweep always runs;
// the per-trip conditional write keeps a duplicated sweep harmless anyway.
func (sw *SweepWorker) acquireLock(ctx context.Context) bool {
	if sw.redis == nil {
		return true
	}

	ok, err := sw.redis.SetNX(ctx, sweepLockKey, time.Now().UnixNano(), sw.config.LockTTL).Result()
	if err != nil {
		logrus.Warnf("Sweep leader lock unavailable, proceeding: %v", err)
		return true
	}
	return ok
}

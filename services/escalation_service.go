package services

import (
	"rientro/config"
	"rientro/models"
	"time"
)

// EscalationService is the pure decision function behind the sweep. It maps
// a trip's current state and the elapsed time to the next (status, level)
// pair. It has no side effects and never produces SOS: a manual SOS comes
// from the traveler's own action, not from a timeout.
type EscalationService struct {
	timing config.EscalationTiming
}

type EscalationResult struct {
	Status  string
	Level   int
	Changed bool
}

func NewEscalationService(timing config.EscalationTiming) *EscalationService {
	return &EscalationService{
		timing: timing,
	}
}

// Evaluate decides the next escalation state for an open trip at instant
// now. The level is monotonically non-decreasing; callers must not pass
// terminal or emergency trips.
func (es *EscalationService) Evaluate(trip *models.Trip, now time.Time) EscalationResult {
	result := EscalationResult{
		Status: trip.Status,
		Level:  trip.EscalationLevel,
	}

	minutesLate := int(now.Sub(trip.ExpectedEndTime).Minutes())
	if minutesLate <= 0 {
		// Not yet overdue, nothing to do.
		return result
	}

	if result.Status == models.TripStatusActive {
		result.Status = models.TripStatusLate
	}

	// A trip with no ping at all is treated as silent forever, which is the
	// conservative, alert-favoring reading.
	pinged := trip.LastPing != nil
	var minutesSincePing int
	if pinged {
		minutesSincePing = int(now.Sub(*trip.LastPing).Minutes())
	}

	if (!pinged || minutesSincePing > es.timing.SoftAfter()) && result.Level < models.EscalationSoft {
		result.Level = models.EscalationSoft
	}

	if (!pinged || minutesSincePing > es.timing.UrgentAfter()) && result.Level < models.EscalationUrgent {
		result.Level = models.EscalationUrgent
	}

	if (!pinged || minutesSincePing > es.timing.EmergencyAfter()) && result.Level < models.EscalationEmergency {
		result.Level = models.EscalationEmergency
		result.Status = models.TripStatusEmergency
	}

	result.Changed = result.Status != trip.Status || result.Level != trip.EscalationLevel
	return result
}

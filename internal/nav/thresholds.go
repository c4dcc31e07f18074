package nav

import (
	"fmt"
	"time"
)

// Tuning holds the guidance thresholds. The values are product-tuned
// defaults, not invariants; the one hard requirement is that the
// advance-warning band sits strictly beyond the instruction-advance radius.
type Tuning struct {
	// ProximityLockM is how close the user must come to the route (with
	// usable accuracy) before off-route detection arms.
	ProximityLockM float64

	// MaxUsableAccuracyM is the worst reported accuracy that may drive
	// state transitions. Worse readings still update progress.
	MaxUsableAccuracyM float64

	// OffRouteM is the deviation distance that triggers off-route.
	OffRouteM float64

	// OffRouteRelaxedM replaces OffRouteM when reported accuracy exceeds
	// RelaxAccuracyAboveM.
	OffRouteRelaxedM float64

	// RelaxAccuracyAboveM is the accuracy above which the relaxed
	// off-route threshold applies.
	RelaxAccuracyAboveM float64

	// AdvanceWarnNearM / AdvanceWarnFarM bound the advance-warning band:
	// a warning fires on entering (near, far].
	AdvanceWarnNearM float64
	AdvanceWarnFarM  float64

	// AdvanceRadiusM is the distance to the next instruction anchor at
	// which the instruction advances.
	AdvanceRadiusM float64

	// ArrivalRadiusM is the distance to the destination that counts as
	// arrival.
	ArrivalRadiusM float64

	// TrackingSnapBaseM and TrackingSnapMaxM bound the accuracy-scaled
	// tolerance for reconciling a live position against the route.
	TrackingSnapBaseM float64
	TrackingSnapMaxM  float64

	// ArrivalGrace is how long the session lingers after arrival before
	// tearing down.
	ArrivalGrace time.Duration
}

// DefaultTuning returns the product defaults.
func DefaultTuning() Tuning {
	return Tuning{
		ProximityLockM:      75,
		MaxUsableAccuracyM:  100,
		OffRouteM:           35,
		OffRouteRelaxedM:    50,
		RelaxAccuracyAboveM: 50,
		AdvanceWarnNearM:    35,
		AdvanceWarnFarM:     60,
		AdvanceRadiusM:      25,
		ArrivalRadiusM:      15,
		TrackingSnapBaseM:   50,
		TrackingSnapMaxM:    100,
		ArrivalGrace:        5 * time.Second,
	}
}

// Validate checks the internal consistency of the thresholds.
func (t Tuning) Validate() error {
	if t.AdvanceRadiusM >= t.AdvanceWarnNearM {
		return fmt.Errorf("advance radius (%.0fm) must be below the warning band near edge (%.0fm)",
			t.AdvanceRadiusM, t.AdvanceWarnNearM)
	}
	if t.AdvanceWarnNearM >= t.AdvanceWarnFarM {
		return fmt.Errorf("warning band near edge (%.0fm) must be below its far edge (%.0fm)",
			t.AdvanceWarnNearM, t.AdvanceWarnFarM)
	}
	if t.OffRouteM <= 0 || t.OffRouteRelaxedM < t.OffRouteM {
		return fmt.Errorf("off-route thresholds must satisfy 0 < normal (%.0fm) <= relaxed (%.0fm)",
			t.OffRouteM, t.OffRouteRelaxedM)
	}
	if t.TrackingSnapBaseM > t.TrackingSnapMaxM {
		return fmt.Errorf("tracking snap base (%.0fm) exceeds its maximum (%.0fm)",
			t.TrackingSnapBaseM, t.TrackingSnapMaxM)
	}
	return nil
}

// OffRouteThreshold returns the deviation threshold for a reported accuracy.
// Pure so it is testable independent of the state machine.
func (t Tuning) OffRouteThreshold(accuracyM float64) float64 {
	if accuracyM > t.RelaxAccuracyAboveM {
		return t.OffRouteRelaxedM
	}
	return t.OffRouteM
}

// TrackingTolerance returns the accuracy-scaled distance within which a live
// position is still reconciled against the route for progress tracking.
func (t Tuning) TrackingTolerance(accuracyM float64) float64 {
	tol := t.TrackingSnapBaseM + accuracyM
	if tol > t.TrackingSnapMaxM {
		return t.TrackingSnapMaxM
	}
	return tol
}

// Package obs holds the observation catalog: measured redshifts with the
// source parameters needed to predict them, persisted in SQLite.
package obs

// #region imports
import (
	"fmt"
	"math"
)

// #endregion

// #region observation
// Observation is one measured redshift with its source parameters.
type Observation struct {
	// ID is the catalog identifier, unique within a store.
	ID string
	// Mass of the central body [kg].
	Mass float64
	// Radius of emission [m].
	Radius float64
	// VTotal is the source's total velocity [m/s].
	VTotal float64
	// VLOS is the line-of-sight velocity component, positive receding [m/s].
	VLOS float64
	// ObservedZ is the measured redshift.
	ObservedZ float64
	// Sigma is the measurement uncertainty on z; zero means unknown.
	Sigma float64
}

// #endregion observation

// #region validation
// Validate rejects observations the engine cannot evaluate.
func (o Observation) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("obs: empty id")
	}
	for name, v := range map[string]float64{
		"mass": o.Mass, "radius": o.Radius, "v_total": o.VTotal,
		"v_los": o.VLOS, "observed_z": o.ObservedZ, "sigma": o.Sigma,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("obs: %s: non-finite %s", o.ID, name)
		}
	}
	if o.Mass <= 0 {
		return fmt.Errorf("obs: %s: non-positive mass %g", o.ID, o.Mass)
	}
	if o.Radius <= 0 {
		return fmt.Errorf("obs: %s: non-positive radius %g", o.ID, o.Radius)
	}
	if o.Sigma < 0 {
		return fmt.Errorf("obs: %s: negative sigma %g", o.ID, o.Sigma)
	}
	return nil
}

// #endregion validation

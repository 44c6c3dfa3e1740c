package metric

// #region constants

// Physical constants, SI units.
const (
	// C is the speed of light [m/s].
	C = 299792458.0
	// G is the gravitational constant [m³/(kg·s²)].
	G = 6.67430e-11

	// MSun and MEarth are the standard reference masses [kg].
	MSun   = 1.9885e30
	MEarth = 5.9722e24

	// RSun and REarth are the standard reference radii [m].
	RSun   = 6.9634e8
	REarth = 6.371e6

	// GoldenRatio drives the segment-saturation law.
	GoldenRatio = 1.618033988749894848
)

// #endregion

// #region derived

// SchwarzschildRadius returns r_s = 2GM/c² for the given mass [kg].
func SchwarzschildRadius(mass float64) float64 {
	return 2 * G * mass / (C * C)
}

// #endregion

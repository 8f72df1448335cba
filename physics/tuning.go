package physics

// Distances are in cell units: one maze cell is 1.0 wide and the grid spans
// [0, N] on both axes, with y growing towards the exit row.
const (
	MaxStepDistance    = 0.05   // longest move of one sub-step
	ExtendBox          = 0.025  // collision margin beyond the drawn wall
	WallThickness      = 0.1    // drawn wall thickness
	ImpulseScale       = 0.02   // velocity impulse per unit of push, times 1/dt
	PositionCorrection = 0.5    // share of the push applied to the position
	PushEpsilon        = 0.0001 // keeps push normalisation finite
	NeighborhoodCells  = 2      // cells scanned around the ball each sub-step
	MaxSubSteps        = 2000
	MaxSpeed           = 20.0 // cells per second
	BallRadius         = 0.3
	GravityAccel       = 12.0 // cells per second squared
	LinearDamping      = 0.6  // fraction of velocity shed per second
)

// Params bundles the tunables so tests and clients can vary them.
type Params struct {
	MaxStepDistance    float64
	ExtendBox          float64
	WallThickness      float64
	ImpulseScale       float64
	PositionCorrection float64
	Epsilon            float64
	Neighborhood       int
	MaxSubSteps        int
	MaxSpeed           float64
	GravityAccel       float64
	Damping            float64
}

func DefaultParams() Params {
	return Params{
		MaxStepDistance:    MaxStepDistance,
		ExtendBox:          ExtendBox,
		WallThickness:      WallThickness,
		ImpulseScale:       ImpulseScale,
		PositionCorrection: PositionCorrection,
		Epsilon:            PushEpsilon,
		Neighborhood:       NeighborhoodCells,
		MaxSubSteps:        MaxSubSteps,
		MaxSpeed:           MaxSpeed,
		GravityAccel:       GravityAccel,
		Damping:            LinearDamping,
	}
}

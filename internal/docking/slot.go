package docking

import (
	"math"

	"github.com/OCAP2/dockyard/pkg/core"
)

const (
	// SlotSpacing is the distance from a hub to each of its docking slots.
	SlotSpacing = 2.6
	// MinSeparation is the minimum planar distance between a slot and any occupied position.
	MinSeparation = 1.0
)

// SlotAngles are the candidate approach angles in evaluation order (flat-topped hexagon).
var SlotAngles = [6]float64{30, 90, 150, 210, 270, 330}

// FindFreeSlot returns the first candidate slot around hub whose planar
// distance to every occupied position is at least MinSeparation.
// It returns false when all six slots are taken.
func FindFreeSlot(hub core.Position, occupied []core.Position) (core.DockingSlot, bool) {
	for _, angle := range SlotAngles {
		rad := core.Radians(angle)
		candidate := core.Position{
			X: hub.X + math.Cos(rad)*SlotSpacing,
			Y: hub.Y,
			Z: hub.Z + math.Sin(rad)*SlotSpacing,
		}

		if isFree(candidate, occupied) {
			return core.DockingSlot{Position: candidate, ApproachAngle: angle}, true
		}
	}
	return core.DockingSlot{}, false
}

func isFree(candidate core.Position, occupied []core.Position) bool {
	for _, pos := range occupied {
		if candidate.PlanarDistanceTo(pos) < MinSeparation {
			return false
		}
	}
	return true
}

package simulation

const hudMinDistance = 0.2

// LaunchReadout is the launch HUD for the module in flight.
type LaunchReadout struct {
	Visible  bool    `json:"visible"`
	Name     string  `json:"name,omitempty"`
	Distance float64 `json:"distance"`
	Velocity float64 `json:"velocity"` // display units, not the physics speed
	ETA      float64 `json:"eta"`      // seconds at the current speed, 0 when stationary
	Progress float64 `json:"progress"`
}

// HUD builds the readout for an agent advanced ticksPerSecond times a
// second. It is hidden once the module is within docking range.
func HUD(a AgentView, ticksPerSecond float64) LaunchReadout {
	if a.Distance < hudMinDistance {
		return LaunchReadout{}
	}
	var eta float64
	if perSecond := a.Speed * ticksPerSecond; perSecond > 0 {
		eta = a.Distance / perSecond
	}
	return LaunchReadout{
		Visible:  true,
		Name:     a.Name,
		Distance: a.Distance,
		Velocity: a.Distance * 1.5,
		ETA:      eta,
		Progress: a.Progress,
	}
}

package onboard

// MapCommands turns an axis snapshot into the target command for every
// thruster. Pure and stateless: it has no memory of the previous cycle.
//
// Conflicting input (both buttons of one thruster held) maps to Stop. An
// undefined thruster direction is a safety risk, so a conflict is treated
// as no valid command rather than last-one-wins.
func MapCommands(states AxisStates) CommandVector {
	var v CommandVector
	for t := Thruster(0); t < NumThrusters; t++ {
		fwd := states[Axis{Thruster: t, Sense: SenseForward}]
		rev := states[Axis{Thruster: t, Sense: SenseReverse}]

		switch {
		case fwd && !rev:
			v[t] = Forward
		case rev && !fwd:
			v[t] = Reverse
		default:
			v[t] = Stop
		}
	}
	return v
}

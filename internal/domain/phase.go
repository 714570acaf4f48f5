package domain

// TurnPhase represents the current phase of a match
type TurnPhase string

const (
	PhaseIntro        TurnPhase = "INTRO"         // Match announced, waiting to begin
	PhaseP1Ready      TurnPhase = "P1_READY"      // Countdown before player 1 speaks
	PhaseP1Recording  TurnPhase = "P1_RECORDING"  // Player 1 capture window
	PhaseP1Processing TurnPhase = "P1_PROCESSING" // Player 1 transcript finalized
	PhaseP2Ready      TurnPhase = "P2_READY"      // Countdown before player 2 speaks
	PhaseP2Recording  TurnPhase = "P2_RECORDING"  // Player 2 capture window
	PhaseP2Processing TurnPhase = "P2_PROCESSING" // Player 2 transcript finalized
	PhaseRoundEnd     TurnPhase = "ROUND_END"     // Judges deliberating, then result
)

// String returns the string representation of the phase
func (p TurnPhase) String() string {
	return string(p)
}

// CanTransitionTo checks if a transition from current phase to target phase is valid
func (p TurnPhase) CanTransitionTo(target TurnPhase) bool {
	validTransitions := map[TurnPhase]TurnPhase{
		PhaseIntro:        PhaseP1Ready,
		PhaseP1Ready:      PhaseP1Recording,
		PhaseP1Recording:  PhaseP1Processing,
		PhaseP1Processing: PhaseP2Ready,
		PhaseP2Ready:      PhaseP2Recording,
		PhaseP2Recording:  PhaseP2Processing,
		PhaseP2Processing: PhaseRoundEnd,
	}

	next, ok := validTransitions[p]
	return ok && next == target
}

// Ready reports whether the phase is a pre-recording countdown
func (p TurnPhase) Ready() bool {
	return p == PhaseP1Ready || p == PhaseP2Ready
}

// Recording reports whether the phase is a capture window
func (p TurnPhase) Recording() bool {
	return p == PhaseP1Recording || p == PhaseP2Recording
}

// Processing reports whether the phase finalizes a transcript
func (p TurnPhase) Processing() bool {
	return p == PhaseP1Processing || p == PhaseP2Processing
}

// Player returns the player whose turn the phase belongs to, or NoPlayer
func (p TurnPhase) Player() Player {
	switch p {
	case PhaseP1Ready, PhaseP1Recording, PhaseP1Processing:
		return P1
	case PhaseP2Ready, PhaseP2Recording, PhaseP2Processing:
		return P2
	default:
		return NoPlayer
	}
}

// ReadyPhase returns the countdown phase for a player
func ReadyPhase(player Player) TurnPhase {
	if player == P2 {
		return PhaseP2Ready
	}
	return PhaseP1Ready
}

// RecordingPhase returns the capture phase for a player
func RecordingPhase(player Player) TurnPhase {
	if player == P2 {
		return PhaseP2Recording
	}
	return PhaseP1Recording
}

// ProcessingPhase returns the processing phase for a player
func ProcessingPhase(player Player) TurnPhase {
	if player == P2 {
		return PhaseP2Processing
	}
	return PhaseP1Processing
}

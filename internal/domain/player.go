package domain

// Player identifies one of the two contestants
type Player int

const (
	NoPlayer Player = iota
	P1
	P2
)

// String returns the short label used in prompts and events
func (p Player) String() string {
	switch p {
	case P1:
		return "P1"
	case P2:
		return "P2"
	default:
		return ""
	}
}

// MarshalText encodes the player as its label
func (p Player) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Other returns the opposing player
func (p Player) Other() Player {
	switch p {
	case P1:
		return P2
	case P2:
		return P1
	default:
		return NoPlayer
	}
}

// Winner is the declared outcome of a match
type Winner string

const (
	WinnerP1  Winner = "P1"
	WinnerP2  Winner = "P2"
	WinnerTie Winner = "TIE"
)

// DecideWinner compares two final totals; only a strictly higher total wins
func DecideWinner(p1Total, p2Total int) Winner {
	switch {
	case p1Total > p2Total:
		return WinnerP1
	case p2Total > p1Total:
		return WinnerP2
	default:
		return WinnerTie
	}
}

// ConnectionStatus represents a client's connection state
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "CONNECTED"
	StatusDisconnected ConnectionStatus = "DISCONNECTED"
)

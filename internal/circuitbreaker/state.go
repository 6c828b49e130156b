package circuitbreaker

type State int

const (
	// upstream calls flow normally
	StateClosed State = iota
	// upstream calls are refused until the cooldown passes
	StateOpen
	// one probe call decides between closed and open
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

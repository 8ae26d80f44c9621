package model

// Guard availability values used by the matching query.
const (
	GuardOnline  = "online"
	GuardOffline = "offline"
)

// Guard is a protective-service freelancer eligible for matching.  The
// Skills document is free-form JSON stored in the guards table; the
// matching engine only inspects the "armed" capability flag.
type Guard struct {
	ID           string          // guards.id
	City         string          // guards.city
	Skills       map[string]bool // guards.skills (JSON document)
	Availability string          // guards.availability_status
}

// Armed reports whether the guard's skill set declares armed capability.
func (g Guard) Armed() bool {
	return g.Skills["armed"]
}

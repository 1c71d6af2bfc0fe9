package domain

// ActorKind differentiates human-initiated changes from sweeper ones.
type ActorKind string

const (
	ActorKindHuman  ActorKind = "HUMAN"
	ActorKindSystem ActorKind = "SYSTEM"
)

// systemUserID is the sentinel stored in the history user column for
// sweeper-initiated changes. It exists only at the persistence boundary.
const systemUserID = "SYSTEM"

// Actor identifies who performed a change: a named employee or the system.
type Actor struct {
	Kind  ActorKind
	EmpID string
}

// HumanActor builds an actor for the given employee.
func HumanActor(empID string) Actor {
	return Actor{Kind: ActorKindHuman, EmpID: empID}
}

// SystemActor builds the sweeper actor.
func SystemActor() Actor {
	return Actor{Kind: ActorKindSystem}
}

// IsSystem reports whether the actor is the system.
func (a Actor) IsSystem() bool {
	return a.Kind == ActorKindSystem
}

// UserID encodes the actor for storage.
func (a Actor) UserID() string {
	if a.Kind == ActorKindSystem {
		return systemUserID
	}
	return a.EmpID
}

// ActorFromUserID decodes a stored user column back into an actor.
func ActorFromUserID(userID string) Actor {
	if userID == systemUserID {
		return SystemActor()
	}
	return HumanActor(userID)
}

package domain

// RouteKey is the five-tuple that routes a new ticket to its assignee.
// All five dimensions must match exactly; there is no wildcard matching.
type RouteKey struct {
	Location   string
	Department string
	SubDept    string
	SubTask    string
	TaskLabel  string
}

// Complete reports whether every dimension of the key is populated.
func (k RouteKey) Complete() bool {
	return k.Location != "" && k.Department != "" && k.SubDept != "" &&
		k.SubTask != "" && k.TaskLabel != ""
}

// AssigneeMapping is a static routing rule. The five-tuple is unique across
// the mapping set, so a resolved route is at most one row by construction.
type AssigneeMapping struct {
	ID            int64
	Location      string
	Department    string
	SubDept       string
	SubTask       string
	TaskLabel     string
	TicketType    string
	AssigneeEmpID string
}

// Key returns the routing tuple of the mapping.
func (m *AssigneeMapping) Key() RouteKey {
	return RouteKey{
		Location:   m.Location,
		Department: m.Department,
		SubDept:    m.SubDept,
		SubTask:    m.SubTask,
		TaskLabel:  m.TaskLabel,
	}
}

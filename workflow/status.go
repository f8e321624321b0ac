package workflow

// Parking request lifecycle statuses.
//
//	requested --(driver accepts)--> assigned
//	assigned --(driver starts parking)--> parked
//	parked --(user requests retrieval)--> retrieval_requested (valet cleared)
//	retrieval_requested --(driver starts retrieval)--> retrieving
//	retrieving --(driver marks arrived)--> vehicle_arrived
//	vehicle_arrived --(user confirms pickup)--> completed
//
// archived is a reserved soft-delete state no normal flow reaches.
const (
	StatusRequested          = "requested"
	StatusAssigned           = "assigned"
	StatusParked             = "parked"
	StatusRetrievalRequested = "retrieval_requested"
	StatusRetrieving         = "retrieving"
	StatusVehicleArrived     = "vehicle_arrived"
	StatusCompleted          = "completed"
	StatusArchived           = "archived"
)

var transitions = map[string][]string{
	StatusRequested:          {StatusAssigned, StatusArchived},
	StatusAssigned:           {StatusParked, StatusArchived},
	StatusParked:             {StatusRetrievalRequested, StatusArchived},
	StatusRetrievalRequested: {StatusRetrieving, StatusArchived},
	StatusRetrieving:         {StatusVehicleArrived, StatusArchived},
	StatusVehicleArrived:     {StatusCompleted, StatusArchived},
}

// KnownStatus reports whether s is a defined lifecycle status.
func KnownStatus(s string) bool {
	switch s {
	case StatusRequested, StatusAssigned, StatusParked, StatusRetrievalRequested,
		StatusRetrieving, StatusVehicleArrived, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// CanTransition reports whether from → to is a legal lifecycle step.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is a final status excluded from active queries.
func IsTerminal(s string) bool {
	return s == StatusCompleted || s == StatusArchived
}

// RequiresValet reports whether a request in status s must carry a valet
// assignment. Only requested, retrieval_requested and archived exist without
// a driver attached.
func RequiresValet(s string) bool {
	switch s {
	case StatusAssigned, StatusParked, StatusRetrieving, StatusVehicleArrived, StatusCompleted:
		return true
	}
	return false
}

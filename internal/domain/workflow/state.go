package workflow

// Status is the state variable of a travel request. Values are persisted and
// compared literally, so spacing and case must not change.
type Status string

const (
	StatusPending            Status = "Pending"
	StatusManagerApproved    Status = "Manager Approved"
	StatusDisapproved        Status = "Disapproved"
	StatusReturnedToEmployee Status = "Returned to Employee"
	StatusApproved           Status = "Approved"
	StatusBooked             Status = "Booked"
	StatusCompleted          Status = "Completed"
	StatusReturnedToManager  Status = "Returned to Manager"
)

var validStatuses = map[Status]bool{
	StatusPending:            true,
	StatusManagerApproved:    true,
	StatusDisapproved:        true,
	StatusReturnedToEmployee: true,
	StatusApproved:           true,
	StatusBooked:             true,
	StatusCompleted:          true,
	StatusReturnedToManager:  true,
}

var terminalStatuses = map[Status]bool{
	StatusDisapproved: true,
	StatusCompleted:   true,
}

// AllStatuses returns every workflow status in lifecycle order
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusManagerApproved,
		StatusDisapproved,
		StatusReturnedToEmployee,
		StatusApproved,
		StatusBooked,
		StatusCompleted,
		StatusReturnedToManager,
	}
}

// IsTerminal reports whether no forward path leads out of the status.
// Reviewer actions are still accepted from terminal statuses.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known workflow status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

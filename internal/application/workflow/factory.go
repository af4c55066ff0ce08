package workflow

import (
	domainwf "github.com/garyjia/travel-desk/internal/domain/workflow"
)

// reviewerAudience is notified of every travel desk decision
const reviewerAudience = domainwf.NotifyEmployee | domainwf.NotifyManager

// BuildTravelPolicy creates the policy configured for the travel request workflow.
// Manager and travel desk actions carry no status precondition: a privileged
// reviewer may act on a request in any status.
func BuildTravelPolicy() domainwf.Policy {
	builder := domainwf.NewBuilder()

	// Employee owns the request
	builder.Configure(domainwf.RoleEmployee).
		OptionalComment().
		Permit(domainwf.ActionSubmit, domainwf.StatusPending, domainwf.NotifyManager).
		PermitIf(domainwf.ActionEdit, domainwf.StatusPending, domainwf.NotifyNone,
			domainwf.RequireStatus(domainwf.StatusReturnedToEmployee)).
		PermitRemoval(domainwf.ActionDelete)

	// Manager reviews direct reports
	builder.Configure(domainwf.RoleManager).
		Permit(domainwf.ActionApprove, domainwf.StatusManagerApproved, domainwf.NotifyTravelAdmins).
		Permit(domainwf.ActionDisapprove, domainwf.StatusDisapproved, domainwf.NotifyEmployee).
		Permit(domainwf.ActionReturnToEmployee, domainwf.StatusReturnedToEmployee, domainwf.NotifyEmployee).
		Alias("return", domainwf.ActionReturnToEmployee)

	// HR travel admin books
	builder.Configure(domainwf.RoleTravelAdmin).
		Permit(domainwf.ActionApprove, domainwf.StatusApproved, reviewerAudience).
		Permit(domainwf.ActionDisapprove, domainwf.StatusDisapproved, reviewerAudience).
		Permit(domainwf.ActionBook, domainwf.StatusBooked, reviewerAudience).
		Permit(domainwf.ActionBookTicket, domainwf.StatusCompleted, reviewerAudience).
		Permit(domainwf.ActionComplete, domainwf.StatusCompleted, reviewerAudience).
		Permit(domainwf.ActionClose, domainwf.StatusCompleted, reviewerAudience).
		Permit(domainwf.ActionReturnToManager, domainwf.StatusReturnedToManager, reviewerAudience).
		Permit(domainwf.ActionReturnToEmployee, domainwf.StatusReturnedToEmployee, reviewerAudience)

	return builder.Build()
}

package workflow

import (
	"fmt"
	"html"
	"strings"
)

// Notice is a notification intent produced by a decision. Recipients are
// resolved later from the audience.
type Notice struct {
	Audience Audience
	Subject  string
	Body     string
}

// NoticeContext carries the request facts rendered into a notice
type NoticeContext struct {
	RequestID    int64
	Comment      string
	EmployeeName string
}

type noticeKey struct {
	role   Role
	action Action
}

type noticeTemplate struct {
	subject string
	summary string // %d is the request id
}

var noticeTemplates = map[noticeKey]noticeTemplate{
	{RoleManager, ActionApprove}:              {"Travel Request Awaiting Travel Desk Review", "Travel request %d has been approved by the manager and is ready for booking."},
	{RoleManager, ActionDisapprove}:           {"Travel Request Disapproved", "Travel request %d has been disapproved by your manager."},
	{RoleManager, ActionReturnToEmployee}:     {"Travel Request Returned to Employee", "Travel request %d has been returned to you by your manager for revision."},
	{RoleTravelAdmin, ActionApprove}:          {"Travel Request Approved", "Travel request %d has been approved by HR."},
	{RoleTravelAdmin, ActionDisapprove}:       {"Travel Request Disapproved", "Travel request %d has been disapproved by HR."},
	{RoleTravelAdmin, ActionBook}:             {"Travel Request Booked", "Travel request %d has been booked."},
	{RoleTravelAdmin, ActionComplete}:         {"Travel Request Completed", "Travel request %d has been completed."},
	{RoleTravelAdmin, ActionBookTicket}:       {"Travel Ticket Booked", "Ticket has been booked for travel request %d."},
	{RoleTravelAdmin, ActionReturnToManager}:  {"Travel Request Returned to Manager", "Travel request %d has been returned to manager for review."},
	{RoleTravelAdmin, ActionReturnToEmployee}: {"Travel Request Returned to Employee", "Travel request %d has been returned to employee for revision."},
	{RoleTravelAdmin, ActionClose}:            {"Travel Request Closed", "Travel request %d has been closed."},
}

// Notices renders the notification intents of a decision. A decision with
// an empty audience yields none.
func Notices(d Decision, nc NoticeContext) []Notice {
	if d.Audience == NotifyNone {
		return nil
	}

	if d.Role == RoleEmployee && d.Action == ActionSubmit {
		return []Notice{{
			Audience: d.Audience,
			Subject:  strings.TrimSpace(fmt.Sprintf("New Travel Request from %s", nc.EmployeeName)),
			Body:     fmt.Sprintf("<p>A new travel request (ID: %d) has been submitted for your approval.</p>", nc.RequestID),
		}}
	}

	tmpl, ok := noticeTemplates[noticeKey{d.Role, d.Action}]
	if !ok {
		tmpl = noticeTemplate{
			subject: fmt.Sprintf("Travel Request %s", d.To),
			summary: "Travel request %d status updated to " + html.EscapeString(d.To.String()) + ".",
		}
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<p>"+tmpl.summary+"</p>", nc.RequestID)
	if comment := strings.TrimSpace(nc.Comment); comment != "" {
		fmt.Fprintf(&body, "<p>Comments: %s</p>", html.EscapeString(comment))
	}

	return []Notice{{
		Audience: d.Audience,
		Subject:  tmpl.subject,
		Body:     body.String(),
	}}
}

// Package statusview maps invoice and withdrawal statuses to the badge and
// controls shown for them.
package statusview

import (
	"strings"

	"github.com/tpc-global/tpc_portal/internal/i18n"
)

// Audience is who is looking at the record.
type Audience string

const (
	Member Audience = "member"
	Admin  Audience = "admin"
)

// Action is a control exposed for a record.
type Action string

const (
	ActionUploadProof Action = "upload_proof"
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
)

// View is the rendered status of a record.
type View struct {
	Status  string   `json:"status"`
	Label   string   `json:"label"`
	Icon    string   `json:"icon"`
	Color   string   `json:"color"`
	Known   bool     `json:"known"`
	Actions []Action `json:"actions"`
}

// Can reports whether action is available.
func (v View) Can(action Action) bool {
	for _, a := range v.Actions {
		if a == action {
			return true
		}
	}
	return false
}

type badge struct {
	label func(i18n.StatusCopy) string
	icon  string
	color string
}

var invoiceBadges = map[string]badge{
	"UNPAID":         {func(c i18n.StatusCopy) string { return c.Unpaid }, "clock", "amber"},
	"PENDING_REVIEW": {func(c i18n.StatusCopy) string { return c.PendingReview }, "hourglass", "blue"},
	"PAID":           {func(c i18n.StatusCopy) string { return c.Paid }, "check-circle", "green"},
	"CANCELLED":      {func(c i18n.StatusCopy) string { return c.Cancelled }, "x-circle", "gray"},
	"EXPIRED":        {func(c i18n.StatusCopy) string { return c.Expired }, "alert-circle", "red"},
}

var withdrawalBadges = map[string]badge{
	"PENDING":  {func(c i18n.StatusCopy) string { return c.Pending }, "hourglass", "amber"},
	"APPROVED": {func(c i18n.StatusCopy) string { return c.Approved }, "check-circle", "green"},
	"REJECTED": {func(c i18n.StatusCopy) string { return c.Rejected }, "x-circle", "red"},
}

// Invoice renders an invoice status for audience.
func Invoice(status string, audience Audience, sc i18n.StatusCopy) View {
	v := render(status, invoiceBadges, sc)
	if !v.Known {
		return v
	}
	switch {
	case audience == Member && v.Status == "UNPAID":
		v.Actions = []Action{ActionUploadProof}
	case audience == Admin && v.Status == "PENDING_REVIEW":
		v.Actions = []Action{ActionApprove, ActionReject}
	}
	return v
}

// Withdrawal renders a withdrawal status for audience.
func Withdrawal(status string, audience Audience, sc i18n.StatusCopy) View {
	v := render(status, withdrawalBadges, sc)
	if v.Known && audience == Admin && v.Status == "PENDING" {
		v.Actions = []Action{ActionApprove, ActionReject}
	}
	return v
}

func render(status string, badges map[string]badge, sc i18n.StatusCopy) View {
	status = strings.ToUpper(strings.TrimSpace(status))
	b, ok := badges[status]
	if !ok {
		return View{Status: status, Label: sc.Unknown, Icon: "help-circle", Color: "gray", Actions: []Action{}}
	}
	return View{Status: status, Label: b.label(sc), Icon: b.icon, Color: b.color, Known: true, Actions: []Action{}}
}

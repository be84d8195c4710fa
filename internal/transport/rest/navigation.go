package rest

import (
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/academy-portal/internal/identity"
)

// portalEntries is the full navigation registry of the admin portal.
// Each entry is gated by the permission that unlocks its page; the
// handler filters it per identity, so the browser only ever sees what
// it may navigate to.
var portalEntries = []identity.Entry{
	{Label: "Dashboard", Path: "/dashboard"},
	{Label: "Announcements", Path: "/announcements", Permission: "ANNOUNCEMENT_READ"},
	{Label: "Timetable", Path: "/timetable", Permission: "TIMETABLE_READ"},
	{Label: "Courses", Path: "/courses", Permission: "COURSE_READ"},
	{Label: "Loans", Path: "/loans", Permission: "LOAN_READ"},
	{Label: "Contributions", Path: "/contributions", Permission: "CONTRIBUTION_READ"},
	{Label: "Users", Path: "/users", Permission: "USER_READ"},
	{Label: "Roles", Path: "/roles", Permission: "ROLE_READ"},
	{Label: "Academic settings", Path: "/settings/academic", Permission: "ACADEMIC_CONFIG_READ"},
}

type NavigationHandler struct {
	source identity.PermissionSource
}

func NewNavigationHandler(source identity.PermissionSource) *NavigationHandler {
	return &NavigationHandler{source: source}
}

func (h *NavigationHandler) GetNavigation(w http.ResponseWriter, r *http.Request) {
	entries := identity.FilterEntries(h.source, portalEntries)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"entries": entries})
}

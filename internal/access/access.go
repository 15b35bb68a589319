// Package access decides who can see and do what. All checks are pure
// lookups against static tables; unknown inputs resolve to deny.
package access

type Role string
type Page string

const (
	RoleAdmin          Role = "admin"
	RoleProjectManager Role = "project_manager"
	RoleFinance        Role = "finance"
)

const (
	PageDashboard     Page = "dashboard"
	PageProjects      Page = "projects"
	PageFinancials    Page = "financials"
	PageNotifications Page = "notifications"
	PageSettings      Page = "settings"
	PageUsers         Page = "users"
	PageTeams         Page = "teams"
)

// CanAccess reports whether a role may reach a page. Admins reach every
// page; other roles get a fixed subset; unknown roles get nothing.
func CanAccess(role Role, page Page) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleProjectManager:
		return page == PageDashboard || page == PageProjects || page == PageNotifications || page == PageSettings
	case RoleFinance:
		return page == PageDashboard || page == PageFinancials || page == PageNotifications || page == PageSettings
	default:
		return false
	}
}

// HasPrivilege reports whether an identity holds a named capability.
// Admin short-circuits to true regardless of the privilege set.
func HasPrivilege(role Role, privileges []string, privilege string) bool {
	if role == RoleAdmin {
		return true
	}

	for _, p := range privileges {
		if p == privilege {
			return true
		}
	}

	return false
}

// NormalizeRole coerces unknown role values to the least-powerful
// project role rather than failing.
func NormalizeRole(role string) Role {
	switch Role(role) {
	case RoleAdmin, RoleProjectManager, RoleFinance:
		return Role(role)
	default:
		return RoleProjectManager
	}
}

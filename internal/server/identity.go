// Package server derives a client's display identity from the free-text
// username supplied on join.
package server

import "strings"

// Role values attached to a connection at join time.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleUser       = "user"
)

const (
	defaultDepartment   = "General"
	departmentSeparator = " - "
)

// Keyword lists are matched case-insensitively as plain substrings of the raw
// username. Accented and unaccented spellings are both listed because no
// normalization happens before the match. "gerencia" is the management
// account naming convention used by the operations team.
var adminKeywords = []string{"admin", "administrador", "gerencia"}

var supervisorKeywords = []string{
	"facturacion",
	"facturación",
	"cobranza",
	"logistica",
	"logística",
	"supervisor",
	"jefe",
	"encargado",
}

// splitIdentity parses a username of the form "<Department> - <DisplayName>".
// Without the separator, the department defaults and the display name is the
// raw username. Only the first separator is significant, so a display name
// containing " - " is mis-split onto the department side; downstream
// consumers depend on that split, so it stays.
func splitIdentity(username string) (department, displayName string) {
	before, after, found := strings.Cut(username, departmentSeparator)
	if !found {
		return defaultDepartment, username
	}
	return before, after
}

// deriveRole infers a role from keyword matches on the raw username.
// Admin terms win over supervisor terms.
func deriveRole(username string) string {
	lowered := strings.ToLower(username)

	for _, keyword := range adminKeywords {
		if strings.Contains(lowered, keyword) {
			return RoleAdmin
		}
	}
	for _, keyword := range supervisorKeywords {
		if strings.Contains(lowered, keyword) {
			return RoleSupervisor
		}
	}
	return RoleUser
}

package security

import (
	"strings"

	"github.com/fastlog-app/fastlog-backend/internal/pkg/env"
)

// AdminAllowlist holds the principals allowed on admin routes.
type AdminAllowlist struct {
	userIDs map[string]struct{}
	emails  map[string]struct{}
}

// NewAdminAllowlist builds an allowlist. Ids match exactly, emails
// case-insensitively.
func NewAdminAllowlist(userIDs, emails []string) *AdminAllowlist {
	a := &AdminAllowlist{
		userIDs: make(map[string]struct{}, len(userIDs)),
		emails:  make(map[string]struct{}, len(emails)),
	}
	for _, id := range userIDs {
		if id = strings.TrimSpace(id); id != "" {
			a.userIDs[id] = struct{}{}
		}
	}
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			a.emails[e] = struct{}{}
		}
	}
	return a
}

// AdminAllowlistFromEnv reads ADMIN_USER_IDS and ADMIN_EMAILS.
func AdminAllowlistFromEnv() *AdminAllowlist {
	return NewAdminAllowlist(env.GetEnvList("ADMIN_USER_IDS"), env.GetEnvList("ADMIN_EMAILS"))
}

// Allows reports whether the principal is an admin.
func (a *AdminAllowlist) Allows(userID, email string) bool {
	if a == nil {
		return false
	}
	if _, ok := a.userIDs[strings.TrimSpace(userID)]; ok && userID != "" {
		return true
	}
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return false
	}
	_, ok := a.emails[e]
	return ok
}

// Len returns the number of configured principals.
func (a *AdminAllowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.userIDs) + len(a.emails)
}

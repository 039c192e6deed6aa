package access

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rosterly/rosterly/internal/identity"
)

// ErrUnmappedRole indicates a role with no route-access rule. This is a
// configuration error, never a deny: masking it as "forbidden" would hide
// misconfiguration.
var ErrUnmappedRole = errors.New("access: role has no route rules")

// Table maps each role to the path prefixes it may reach. Any match allows
// the request; matching is exact-prefix and case-sensitive.
type Table map[identity.Role][]string

// DefaultTable returns the route-access rules for the platform roles.
func DefaultTable() Table {
	return Table{
		identity.RoleSuperAdmin:            {"/"},
		identity.RoleFacilityAdmin:         {"/dashboard", "/facilities", "/shifts", "/schedule", "/staff", "/reports"},
		identity.RoleSchedulingCoordinator: {"/dashboard", "/shifts", "/schedule"},
		identity.RoleHRManager:             {"/dashboard", "/staff", "/hr"},
		identity.RoleBillingManager:        {"/dashboard", "/billing", "/invoices"},
		identity.RoleSupervisor:            {"/dashboard", "/shifts", "/schedule"},
		identity.RoleDirectorOfNursing:     {"/dashboard", "/shifts", "/schedule", "/staff"},
		identity.RoleCorporate:             {"/dashboard", "/facilities", "/reports"},
		identity.RoleRegionalDirector:      {"/dashboard", "/facilities", "/schedule", "/reports"},
		identity.RoleStaff:                 {"/dashboard", "/shifts", "/profile"},
		identity.RoleViewer:                {"/dashboard"},
	}
}

// Allows reports whether the role may reach the given path. Querying a role
// outside the table surfaces ErrUnmappedRole.
func (t Table) Allows(role identity.Role, path string) (bool, error) {
	prefixes, ok := t[role]
	if !ok || len(prefixes) == 0 {
		return false, fmt.Errorf("%w: %s", ErrUnmappedRole, role)
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// Validate ensures the table is total over the role enumeration with a
// non-empty rule set per role. Called at startup; a failure is fatal.
func (t Table) Validate() error {
	for _, role := range identity.Roles() {
		prefixes, ok := t[role]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnmappedRole, role)
		}
		if len(prefixes) == 0 {
			return fmt.Errorf("access: role %s has an empty rule set", role)
		}
	}
	return nil
}

package identity

// Role is one of the closed set of roles the platform knows about.
type Role string

// Platform roles.
const (
	RoleSuperAdmin            Role = "super_admin"
	RoleFacilityAdmin         Role = "facility_admin"
	RoleSchedulingCoordinator Role = "scheduling_coordinator"
	RoleHRManager             Role = "hr_manager"
	RoleBillingManager        Role = "billing_manager"
	RoleSupervisor            Role = "supervisor"
	RoleDirectorOfNursing     Role = "director_of_nursing"
	RoleCorporate             Role = "corporate"
	RoleRegionalDirector      Role = "regional_director"
	RoleStaff                 Role = "staff"
	RoleViewer                Role = "viewer"
)

// Roles lists every role in the closed enumeration.
func Roles() []Role {
	return []Role{
		RoleSuperAdmin,
		RoleFacilityAdmin,
		RoleSchedulingCoordinator,
		RoleHRManager,
		RoleBillingManager,
		RoleSupervisor,
		RoleDirectorOfNursing,
		RoleCorporate,
		RoleRegionalDirector,
		RoleStaff,
		RoleViewer,
	}
}

// Valid reports whether the role belongs to the enumeration.
func (r Role) Valid() bool {
	for _, known := range Roles() {
		if r == known {
			return true
		}
	}
	return false
}

// Principal identifies an authenticated actor. Immutable once loaded for a
// request.
type Principal struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	FacilityID *int64 `json:"facilityId,omitempty"`
}

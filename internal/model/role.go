package model

// Role fixed role enumeration.
type Role string

const (
	RoleFaculty      Role = "Faculty"
	RoleAdmin        Role = "Admin"
	RoleHOD          Role = "HOD"
	RoleDean         Role = "Dean"
	RoleDirector     Role = "Director"
	RoleVerification Role = "Verification Team"
	RoleExternal     Role = "external"
)

// Roles every valid role.
var Roles = []Role{RoleFaculty, RoleAdmin, RoleHOD, RoleDean, RoleDirector, RoleVerification, RoleExternal}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// Departments accepted in request paths.
var Departments = []string{"CSE", "ECE", "ME", "CE", "EEE", "IT", "CHEM", "PHY", "MATH"}

// ValidDepartment reports whether d is a known department code.
func ValidDepartment(d string) bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

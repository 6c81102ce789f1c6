package enums

import "fmt"

// UserRole is the role carried in access tokens.
type UserRole string

const (
	// UserRoleAdmin builds and submits quotes.
	UserRoleAdmin UserRole = "admin"
	// UserRoleClient owns service requests and decides on their quotes.
	UserRoleClient UserRole = "client"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleClient,
}

func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known role.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}

package jwt

// Role represents a user role in the system
type Role string

// Roles ordered from most to least privileged
const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

// Permission represents a fine-grained capability
type Permission string

const (
	PermReadConversation  Permission = "conversation:read"
	PermWriteConversation Permission = "conversation:write"
	PermReadCustomer      Permission = "customer:read"
	PermWriteCustomer     Permission = "customer:write"
	PermManageIntegration Permission = "integration:manage"
	PermManageUsers       Permission = "users:manage"
)

// rolePermissions maps each role to the permissions it grants
var rolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermReadConversation, PermWriteConversation,
		PermReadCustomer, PermWriteCustomer,
		PermManageIntegration, PermManageUsers,
	},
	RoleAdmin: {
		PermReadConversation, PermWriteConversation,
		PermReadCustomer, PermWriteCustomer,
		PermManageIntegration,
	},
	RoleAgent: {
		PermReadConversation, PermWriteConversation,
		PermReadCustomer,
	},
}

// ValidRole reports whether the given role is known
func ValidRole(role Role) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasRole checks if the claims carry the given role.
// Owner satisfies any role check.
func (c *JWTClaims) HasRole(role Role) bool {
	if Role(c.Role) == RoleOwner {
		return true
	}
	return Role(c.Role) == role
}

// HasPermission checks if the claims' role grants the given permission
func (c *JWTClaims) HasPermission(permission Permission) bool {
	perms, ok := rolePermissions[Role(c.Role)]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

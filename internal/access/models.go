// Package access provides role-based access control for moderation endpoints.
package access

// Permission represents a moderation action that can be performed
type Permission string

const (
	PermissionViewReports    Permission = "view_reports"
	PermissionResolveReport  Permission = "resolve_report"
	PermissionDismissReport  Permission = "dismiss_report"
	PermissionHideContent    Permission = "hide_content"
	PermissionUnhideContent  Permission = "unhide_content"
	PermissionManageReasons  Permission = "manage_reasons"
	PermissionViewAuditLog   Permission = "view_audit_log"
)

// AllPermissions returns all available permissions
func AllPermissions() []Permission {
	return []Permission{
		PermissionViewReports,
		PermissionResolveReport,
		PermissionDismissReport,
		PermissionHideContent,
		PermissionUnhideContent,
		PermissionManageReasons,
		PermissionViewAuditLog,
	}
}

// RoleName represents the name of a moderation role
type RoleName string

const (
	RoleAdmin     RoleName = "admin"
	RoleModerator RoleName = "moderator"
)

// Role defines a set of permissions for moderators
type Role struct {
	Name        RoleName     `json:"-"` // Set from map key during loading
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}

// HasPermission checks if this role has the given permission
func (r *Role) HasPermission(perm Permission) bool {
	for _, p := range r.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// ModeratorUser represents a user with moderation privileges
type ModeratorUser struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name,omitempty"`
	Role   RoleName `json:"role"`
	Note   string   `json:"note,omitempty"`
}

// Config represents the moderator configuration loaded from JSON
type Config struct {
	Roles map[RoleName]*Role `json:"roles"`
	Users []ModeratorUser    `json:"users"`
}

// Validate checks that the config is valid
func (c *Config) Validate() error {
	if c.Roles == nil {
		c.Roles = make(map[RoleName]*Role)
	}

	// Validate that all users reference valid roles
	for _, user := range c.Users {
		if _, ok := c.Roles[user.Role]; !ok {
			return &ConfigError{
				Field:   "users",
				Message: "user " + user.UserID + " references unknown role: " + string(user.Role),
			}
		}
	}

	// Set role names from map keys
	for name, role := range c.Roles {
		role.Name = name
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "access config error in " + e.Field + ": " + e.Message
}

package chat

import "github.com/campusconnect/campuschat/internal/model"

// GroupInfo describes one of the fixed group chats offered for the caller's
// department. CanPost here is a role-derived hint for rendering; the server
// remains authoritative and is consulted again on selection.
type GroupInfo struct {
	ID          string
	Name        string
	Description string
	ChatType    model.ChatType
	CanPost     bool
}

// Groups lists the group chats available to the caller. Every department has
// the same two: a faculty-announcements group where faculty and admins post,
// and a students-only discussion group.
func (c *Coordinator) Groups() []GroupInfo {
	role := c.self.Role
	return []GroupInfo{
		{
			ID:          "faculty-student",
			Name:        "Faculty-Student Group",
			Description: "Announcements and guidance from faculty",
			ChatType:    model.ChatTypeFacultyStudent,
			CanPost:     role == model.RoleFaculty || role == model.RoleAdmin,
		},
		{
			ID:          "all-students",
			Name:        "All Students",
			Description: "Open discussion among department students",
			ChatType:    model.ChatTypeDepartment,
			CanPost:     role == model.RoleStudent,
		},
	}
}

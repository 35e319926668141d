package model

// Role is a campus user role as issued by the backend.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleFaculty Role = "FACULTY"
	RoleStudent Role = "STUDENT"
)

// ChatType identifies one of the two fixed group chats per department.
type ChatType string

const (
	ChatTypeDepartment     ChatType = "DEPARTMENT_GROUP"
	ChatTypeFacultyStudent ChatType = "FACULTY_STUDENT_GROUP"
)

// ChatMessage is a chat message as exchanged with the backend, both over the
// REST history endpoints and as the payload of bus pushes. Direct messages
// carry ReceiverID; group messages carry DepartmentID and ChatType.
type ChatMessage struct {
	ID           int64    `json:"id"`
	SenderID     int64    `json:"senderId"`
	SenderName   string   `json:"senderName,omitempty"`
	ReceiverID   int64    `json:"receiverId,omitempty"`
	ReceiverName string   `json:"receiverName,omitempty"`
	DepartmentID int64    `json:"departmentId,omitempty"`
	ChatType     ChatType `json:"chatType,omitempty"`
	Message      string   `json:"message"`
	IsRead       bool     `json:"isRead,omitempty"`
	CreatedAt    Time     `json:"createdAt"`
}

// Conversation summarizes a direct-message thread from the caller's side.
type Conversation struct {
	ID            int64  `json:"id"`
	OtherUserID   int64  `json:"otherUserId"`
	OtherUserName string `json:"otherUserName"`
	OtherUserRole Role   `json:"otherUserRole"`
	LastMessage   string `json:"lastMessage"`
	UnreadCount   int    `json:"unreadCount"`
	UpdatedAt     Time   `json:"updatedAt"`
}

// GroupPermissions describes what the caller may do in a group chat.
type GroupPermissions struct {
	CanPost           bool     `json:"canPost"`
	CanRead           bool     `json:"canRead"`
	FacultyMonitoring bool     `json:"facultyMonitoring"`
	ChatType          ChatType `json:"chatType,omitempty"`
}

// User is a chat-eligible user from the department roster.
type User struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Role           Role   `json:"role"`
	DepartmentID   int64  `json:"departmentId,omitempty"`
	DepartmentName string `json:"departmentName,omitempty"`
}

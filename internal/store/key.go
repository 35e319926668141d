package store

import (
	"fmt"

	"github.com/campusconnect/campuschat/internal/model"
)

// DirectKey is the cache key for a direct-message thread with a user.
func DirectKey(otherUserID int64) string {
	return fmt.Sprintf("user:%d", otherUserID)
}

// GroupKey is the cache key for one of a department's group chats.
func GroupKey(departmentID int64, chatType model.ChatType) string {
	return fmt.Sprintf("group:%d:%s", departmentID, chatType)
}

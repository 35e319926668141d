package store

import (
	"fmt"

	"github.com/campusconnect/campuschat/internal/model"
)

// ReplaceConversations swaps the cached conversation list with a fresh
// server-side aggregation.
func (db *DB) ReplaceConversations(convs []model.Conversation) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM conversations`); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}
	for _, c := range convs {
		if _, err := tx.Exec(`
			INSERT INTO conversations (other_user_id, other_user_name, other_user_role, last_message, unread_count, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.OtherUserID, c.OtherUserName, string(c.OtherUserRole), c.LastMessage, c.UnreadCount, c.UpdatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert conversation %d: %w", c.OtherUserID, err)
		}
	}
	return tx.Commit()
}

// ListConversations returns cached conversations, most recent first.
func (db *DB) ListConversations() ([]model.Conversation, error) {
	rows, err := db.Query(`
		SELECT other_user_id, other_user_name, other_user_role, last_message, unread_count, updated_at
		FROM conversations
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []model.Conversation
	for rows.Next() {
		var (
			c       model.Conversation
			role    string
			updated int64
		)
		if err := rows.Scan(&c.OtherUserID, &c.OtherUserName, &role, &c.LastMessage, &c.UnreadCount, &updated); err != nil {
			return nil, err
		}
		c.OtherUserRole = model.Role(role)
		c.UpdatedAt = model.FromMillis(updated)
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

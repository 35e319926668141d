package store

import (
	"fmt"

	"github.com/campusconnect/campuschat/internal/model"
)

// InsertMessage caches a single message (idempotent on conv_key + msg_id).
func (db *DB) InsertMessage(convKey string, m model.ChatMessage) error {
	_, err := db.Exec(`
		INSERT INTO messages (conv_key, msg_id, sender_id, sender_name, receiver_id, department_id, chat_type, body, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conv_key, msg_id) DO UPDATE SET
			sender_name = excluded.sender_name,
			body = excluded.body,
			is_read = excluded.is_read`,
		convKey, m.ID, m.SenderID, m.SenderName, m.ReceiverID, m.DepartmentID, string(m.ChatType), m.Message, m.IsRead, m.CreatedAt.UnixMilli())
	return err
}

// ReplaceHistory swaps the cached thread for convKey with a fresh server
// history, in one transaction.
func (db *DB) ReplaceHistory(convKey string, msgs []model.ChatMessage) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conv_key = ?`, convKey); err != nil {
		return fmt.Errorf("clear thread: %w", err)
	}
	for _, m := range msgs {
		if _, err := tx.Exec(`
			INSERT INTO messages (conv_key, msg_id, sender_id, sender_name, receiver_id, department_id, chat_type, body, is_read, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(conv_key, msg_id) DO NOTHING`,
			convKey, m.ID, m.SenderID, m.SenderName, m.ReceiverID, m.DepartmentID, string(m.ChatType), m.Message, m.IsRead, m.CreatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert message %d: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// ListMessages returns the cached thread oldest-first, capped at limit.
func (db *DB) ListMessages(convKey string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := db.Query(`
		SELECT msg_id, sender_id, sender_name, receiver_id, department_id, chat_type, body, is_read, created_at
		FROM messages
		WHERE conv_key = ?
		ORDER BY created_at ASC, msg_id ASC
		LIMIT ?`, convKey, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []model.ChatMessage
	for rows.Next() {
		var (
			m        model.ChatMessage
			chatType string
			created  int64
		)
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderName, &m.ReceiverID, &m.DepartmentID, &chatType, &m.Message, &m.IsRead, &created); err != nil {
			return nil, err
		}
		m.ChatType = model.ChatType(chatType)
		m.CreatedAt = model.FromMillis(created)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkThreadRead flags every cached message in the thread as read.
func (db *DB) MarkThreadRead(convKey string) error {
	_, err := db.Exec(`UPDATE messages SET is_read = 1 WHERE conv_key = ?`, convKey)
	return err
}

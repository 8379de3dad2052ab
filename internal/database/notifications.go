package database

// InsertNotification records a notification event. postID may be nil for
// events not tied to a post.
func (db *DB) InsertNotification(notifType, title, message string, postID *int64) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO notifications (notification_type, title, message, post_id)
		VALUES (?, ?, ?, ?)`,
		notifType, title, message, postID,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetUnreadNotifications returns unread notifications, newest first.
func (db *DB) GetUnreadNotifications() ([]Notification, error) {
	rows, err := db.conn.Query(
		`SELECT id, notification_type, title, message, post_id, is_read, created_at
		FROM notifications WHERE is_read = 0 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifs []Notification
	for rows.Next() {
		var n Notification
		var read int
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.PostID, &read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.IsRead = read != 0
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

// MarkNotificationRead marks a notification as read.
func (db *DB) MarkNotificationRead(notifID int64) error {
	_, err := db.conn.Exec("UPDATE notifications SET is_read = 1 WHERE id = ?", notifID)
	return err
}

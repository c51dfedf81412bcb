// Package mailbox — простая BBS: сообщения хранятся до тех пор,
// пока получатель не заберёт их командой "#bbs get".
package mailbox

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

type Message struct {
	ID        string
	Recipient string
	Content   string
	CreatedAt time.Time
}

type DB struct {
	*sql.DB
}

func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open mailbox: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("init mailbox schema: %w", err)
	}
	slog.Info("mailbox opened", "path", path)
	return &DB{sqlDB}, nil
}

// адреса храним в нижнем регистре: текст команд тоже приводится к нему
func norm(addr string) string { return strings.ToLower(strings.TrimSpace(addr)) }

func (db *DB) Count(addr string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE recipient = ?`, norm(addr)).Scan(&n)
	return n, err
}

// Get возвращает сообщения адресата, старые первыми.
func (db *DB) Get(addr string) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, recipient, content, created_at FROM messages
		WHERE recipient = ?
		ORDER BY created_at, rowid
	`, norm(addr))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Recipient, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (db *DB) Delete(addr string) error {
	_, err := db.Exec(`DELETE FROM messages WHERE recipient = ?`, norm(addr))
	return err
}

func (db *DB) Post(recipient, content string) error {
	r := norm(recipient)
	if r == "" {
		return fmt.Errorf("mailbox: empty recipient")
	}
	_, err := db.Exec(`
		INSERT INTO messages (id, recipient, content, created_at) VALUES (?, ?, ?, ?)
	`, uuid.NewString(), r, content, time.Now().UTC())
	return err
}

// Package directory — поиск узлов сети по id или короткому имени (#whois).
// База — SQLite-файл с таблицей nodes(node_id, long_name, short_name),
// открывается только на чтение. Заполняется внешними выгрузками.
package directory

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("directory: no matching node")

type Node struct {
	ID        string
	LongName  string
	ShortName string
}

type DB struct {
	*sql.DB
	path string
}

// Open открывает базу справочника. Отсутствующий файл — ошибка:
// sqlite иначе молча создал бы пустую базу.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("directory %q: %w", path, err)
	}
	sqlDB, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open directory: %w", err)
	}
	return &DB{DB: sqlDB, path: path}, nil
}

// SearchByID ищет по шестнадцатеричному id, с "!" или без.
func (db *DB) SearchByID(hexID string) (Node, error) {
	id := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(hexID)), "!")
	return db.one(`
		SELECT node_id, long_name, short_name FROM nodes
		WHERE lower(node_id) = ? OR lower(node_id) = ?
		LIMIT 1
	`, id, "!"+id)
}

func (db *DB) SearchByShortName(name string) (Node, error) {
	return db.one(`
		SELECT node_id, long_name, short_name FROM nodes
		WHERE lower(short_name) = lower(?)
		LIMIT 1
	`, strings.TrimSpace(name))
}

func (db *DB) one(query string, args ...any) (Node, error) {
	var n Node
	var ln, sn sql.NullString
	err := db.QueryRow(query, args...).Scan(&n.ID, &ln, &sn)
	if errors.Is(err, sql.ErrNoRows) {
		return Node{}, ErrNotFound
	}
	if err != nil {
		return Node{}, fmt.Errorf("directory query: %w", err)
	}
	n.LongName, n.ShortName = ln.String, sn.String
	return n, nil
}

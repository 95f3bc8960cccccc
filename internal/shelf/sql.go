package shelf

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS shelf (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

// SQLShelf stores values in a single sqlite table.
type SQLShelf struct {
	db *sqlx.DB
}

// OpenSQL opens (creating if needed) a sqlite shelf at path.
func OpenSQL(path string) (*SQLShelf, error) {
	// URI filenames have to begin with 'file:'
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}

	return &SQLShelf{db: db}, nil
}

func (s *SQLShelf) Get(key string) ([]byte, error) {
	var value []byte
	if err := s.db.Get(&value, "SELECT value FROM shelf WHERE key=?", key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, pfx.Err(err)
	}
	return value, nil
}

func (s *SQLShelf) Put(key string, value []byte) error {
	if _, err := s.db.Exec("INSERT OR REPLACE INTO shelf (key, value) VALUES (?, ?)", key, value); err != nil {
		return pfx.Err(err)
	}
	return nil
}

func (s *SQLShelf) Keys() ([]string, error) {
	keys := []string{}
	if err := s.db.Select(&keys, "SELECT key FROM shelf ORDER BY key ASC"); err != nil {
		return nil, pfx.Err(err)
	}
	return keys, nil
}

func (s *SQLShelf) Close() error {
	return pfx.Err(s.db.Close())
}

package winchmod

import (
	"fmt"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// initJournalSchema creates the journal tables when they do not exist yet.
func initJournalSchema(conn *sqlite3.Conn) error {
	tables := []string{
		// One row per applied mode change. Modes are stored as the raw 9-bit
		// masks; owner/group names are best-effort and may be empty.
		`CREATE TABLE IF NOT EXISTS mode_changes (
			change_id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL,
			old_mode INTEGER NOT NULL,
			new_mode INTEGER NOT NULL,
			owner_name TEXT,
			group_name TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_mode_changes_path ON mode_changes(path)`,
	}

	for _, table := range tables {
		stmt, tail, err := conn.Prepare(table)
		if err != nil {
			return fmt.Errorf("prepare journal schema error: %v", err)
		}
		if tail != "" {
			stmt.Close()
			return fmt.Errorf("unexpected tail in SQL: %s", tail)
		}
		if err := stmt.Exec(); err != nil {
			stmt.Close()
			return fmt.Errorf("execute journal schema error: %v", err)
		}
		stmt.Close()
	}
	return nil
}

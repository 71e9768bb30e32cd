package winchmod

import (
	"fmt"
	"sync"
	"time"

	"github.com/ncruces/go-sqlite3"
)

// Journal persists applied mode changes in a SQLite database so that a
// recursive run leaves an auditable trail of what was touched.
type Journal struct {
	mu   sync.Mutex
	conn *sqlite3.Conn
}

// ChangeRecord is one journal row.
type ChangeRecord struct {
	Path      string
	OldMode   uint16
	NewMode   uint16
	OwnerName string
	GroupName string
	AppliedAt time.Time
}

// OpenJournal opens (or creates) a journal database. Pass ":memory:" for an
// ephemeral journal.
func OpenJournal(dbName string) (*Journal, error) {
	conn, err := sqlite3.Open(dbName)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %v", err)
	}
	if err := initJournalSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize journal: %v", err)
	}
	return &Journal{conn: conn}, nil
}

// Record appends one applied change.
func (j *Journal) Record(path string, oldMode, newMode uint16, owner, group string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	stmt, _, err := j.conn.Prepare(`
		INSERT INTO mode_changes (path, old_mode, new_mode, owner_name, group_name)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare journal insert error: %v", err)
	}
	defer stmt.Close()

	if err := stmt.BindText(1, path); err != nil {
		return fmt.Errorf("bind path error: %v", err)
	}
	if err := stmt.BindInt64(2, int64(oldMode)); err != nil {
		return fmt.Errorf("bind old mode error: %v", err)
	}
	if err := stmt.BindInt64(3, int64(newMode)); err != nil {
		return fmt.Errorf("bind new mode error: %v", err)
	}
	if err := stmt.BindText(4, owner); err != nil {
		return fmt.Errorf("bind owner error: %v", err)
	}
	if err := stmt.BindText(5, group); err != nil {
		return fmt.Errorf("bind group error: %v", err)
	}
	if err := stmt.Exec(); err != nil {
		return fmt.Errorf("execute journal insert error: %v", err)
	}
	return nil
}

// Changes returns the recorded changes for one path, oldest first.
func (j *Journal) Changes(path string) ([]ChangeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	stmt, _, err := j.conn.Prepare(`
		SELECT path, old_mode, new_mode, owner_name, group_name, unixepoch(applied_at)
		FROM mode_changes WHERE path = ? ORDER BY change_id`)
	if err != nil {
		return nil, fmt.Errorf("prepare journal query error: %v", err)
	}
	defer stmt.Close()

	if err := stmt.BindText(1, path); err != nil {
		return nil, fmt.Errorf("bind path error: %v", err)
	}

	var records []ChangeRecord
	for stmt.Step() {
		records = append(records, ChangeRecord{
			Path:      stmt.ColumnText(0),
			OldMode:   uint16(stmt.ColumnInt64(1)),
			NewMode:   uint16(stmt.ColumnInt64(2)),
			OwnerName: stmt.ColumnText(3),
			GroupName: stmt.ColumnText(4),
			AppliedAt: time.Unix(stmt.ColumnInt64(5), 0),
		})
	}
	if err := stmt.Err(); err != nil {
		return nil, fmt.Errorf("journal query error: %v", err)
	}
	return records, nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.conn.Close()
}

package db

import (
	"errors"
	"fmt"

	"github.com/meow-io/go-msgstore/config"
	"github.com/meow-io/go-msgstore/migration"
	"go.uber.org/zap"
)

// migrator is the migrator implementation
type migrator struct {
	db         *Database
	name       string
	tableName  string
	log        *zap.SugaredLogger
	migrations []*migration.Migration
}

func newMigrator(c *config.Config, db *Database, name string, migrations []*migration.Migration) *migrator {
	return &migrator{
		db:         db,
		log:        c.Logger(name),
		name:       name,
		tableName:  fmt.Sprintf("_migrations_%s", name),
		migrations: migrations,
	}
}

// migrate applies all migrations which haven't been applied yet, in
// registration order. Reapplying is a no-op. Any failure aborts with the
// failing migration rolled back and all prior migrations left in place.
func (m *migrator) migrate() error {
	count, err := m.prepare()
	if err != nil {
		return err
	}

	for idx, mig := range m.migrations[count:] {
		if err := m.performMigration(idx+count, mig); err != nil {
			return fmt.Errorf("migrator: error while running migrations: %w", err)
		}
	}
	return nil
}

// rollback reverts the most recently applied migration.
func (m *migrator) rollback() error {
	count, err := m.prepare()
	if err != nil {
		return err
	}
	if count == 0 {
		return errors.New("migrator: no applied migrations to roll back")
	}

	mig := m.migrations[count-1]
	return m.db.Run(fmt.Sprintf("revert %s", mig), func() error {
		m.log.Debugf("reverting migration named '%s'...", mig.Name)
		if mig.Revert == nil {
			return fmt.Errorf("migrator: migration '%s' has no revert", mig.Name)
		}
		if err := mig.Revert(m.db.Tx.Tx); err != nil {
			return fmt.Errorf("error executing revert: %w", err)
		}
		if _, err := m.db.Tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = $1", m.tableName), count-1); err != nil {
			return fmt.Errorf("error updating migration versions: %w", err)
		}
		m.log.Debugf("reverted migration named '%s'", mig.Name)
		return nil
	})
}

func (m *migrator) prepare() (int, error) {
	var count int
	if err := m.db.Run(fmt.Sprintf("prepare %s migrator", m.name), func() error {
		_, err := m.db.Tx.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INT8 NOT NULL,
			version VARCHAR(255) NOT NULL,
			applied_at_ms INT8 NOT NULL,
			PRIMARY KEY (id)
		);
	`, m.tableName))
		if err != nil {
			return err
		}

		count, err = m.countApplied()
		if err != nil {
			return err
		}

		if count > len(m.migrations) {
			return errors.New("migrator: applied migration number on db cannot be greater than the defined migration list")
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return count, nil
}

func (m *migrator) countApplied() (int, error) {
	var count int
	rows, err := m.db.Tx.Query(fmt.Sprintf("SELECT count(*) FROM %s", m.tableName))
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func (m *migrator) performMigration(id int, mig *migration.Migration) error {
	return m.db.Run(mig.String(), func() error {
		m.log.Debugf("applying migration named '%s'...", mig.Name)
		if err := mig.Func(m.db.Tx.Tx); err != nil {
			return fmt.Errorf("error executing golang migration: %w", err)
		}
		if _, err := m.db.Tx.Exec(fmt.Sprintf("INSERT INTO %s (id, version, applied_at_ms) VALUES ($1, $2, $3)", m.tableName), id, mig.String(), m.db.clock.CurrentTimeMs()); err != nil {
			return fmt.Errorf("error updating migration versions: %w", err)
		}
		m.log.Debugf("applied migration named '%s'", mig.Name)
		return nil
	})
}

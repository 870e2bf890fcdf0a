// This package defines the migration type used by the internal database migrator.
// Migrations are applied in registration order; Revert undoes the most recently
// applied migration and is only ever used against additive schema changes.
package migration

import "database/sql"

type Migration struct {
	Name   string
	Func   func(tx *sql.Tx) error
	Revert func(tx *sql.Tx) error
}

func (m *Migration) String() string {
	return m.Name
}

package msgstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/meow-io/go-msgstore/crypto"
	"github.com/meow-io/go-msgstore/internal/db"
	sqlite3 "github.com/meow-io/go-sqlcipher"
)

type sealedRow struct {
	ID   uuid.UUID `db:"id"`
	Data []byte    `db:"data"`
}

// table is a sealed-record table holding one envelope per row, parameterized
// by the entity type. All methods expect to run inside a transaction started
// by the store.
type table[T any] struct {
	db    *db.Database
	key   []byte
	name  string
	id    func(T) uuid.UUID
	props func(T) []byte
	build func(id uuid.UUID, props []byte) T
}

func newTable[T any](d *db.Database, key []byte, name string, id func(T) uuid.UUID, props func(T) []byte, build func(uuid.UUID, []byte) T) *table[T] {
	return &table[T]{
		db:    d,
		key:   key,
		name:  name,
		id:    id,
		props: props,
		build: build,
	}
}

func (t *table[T]) create(rec T) error {
	sealed, err := crypto.Seal(t.key, t.props(rec))
	if err != nil {
		return err
	}
	_, err = t.db.Tx.Exec(fmt.Sprintf("INSERT INTO %s (id, data) VALUES ($1, $2)", t.name), t.id(rec), sealed)
	return mapConstraint(err)
}

func (t *table[T]) update(rec T) error {
	sealed, err := crypto.Seal(t.key, t.props(rec))
	if err != nil {
		return err
	}
	res, err := t.db.Tx.Exec(fmt.Sprintf("UPDATE %s SET data = $1 WHERE id = $2", t.name), sealed, t.id(rec))
	if err != nil {
		return err
	}
	return mapAffected(res)
}

func (t *table[T]) remove(rec T) error {
	res, err := t.db.Tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = $1", t.name), t.id(rec))
	if err != nil {
		return err
	}
	return mapAffected(res)
}

func (t *table[T]) fetchAll() ([]T, error) {
	var rows []sealedRow
	if err := t.db.Tx.Select(&rows, fmt.Sprintf("SELECT id, data FROM %s ORDER BY id", t.name)); err != nil {
		return nil, err
	}
	recs := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := t.decode(row)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// decode is the single unseal-then-construct conversion every read goes
// through.
func (t *table[T]) decode(row sealedRow) (T, error) {
	var zero T
	props, err := crypto.Unseal(t.key, row.Data)
	if err != nil {
		return zero, err
	}
	return t.build(row.ID, props), nil
}

// Uniqueness violations on create surface as ErrDuplicateIdentity, both for
// primary keys and for the unique message indexes.
func mapConstraint(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return ErrDuplicateIdentity
	}
	return err
}

func mapAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

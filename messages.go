package msgstore

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/meow-io/go-msgstore/crypto"
	"github.com/meow-io/go-msgstore/internal/db"
)

type messageRow struct {
	ID             uuid.UUID `db:"id"`
	Data           []byte    `db:"data"`
	ConversationID uuid.UUID `db:"conversation_id"`
	SenderID       int       `db:"sender_id"`
	Ord            int       `db:"ord"`
	RemoteID       string    `db:"remote_id"`
}

// messageTable stores chat messages: one envelope per row plus the four
// plaintext index columns. The column is named ord since ORDER is an SQL
// keyword.
type messageTable struct {
	db  *db.Database
	key []byte
}

func newMessageTable(d *db.Database, key []byte) *messageTable {
	return &messageTable{db: d, key: key}
}

func (mt *messageTable) create(m *ChatMessageModel) error {
	sealed, err := crypto.Seal(mt.key, m.Props)
	if err != nil {
		return err
	}
	_, err = mt.db.Tx.Exec(
		"INSERT INTO messages (id, data, conversation_id, sender_id, ord, remote_id) VALUES ($1, $2, $3, $4, $5, $6)",
		m.ID, sealed, m.ConversationID, m.SenderID, m.Order, m.RemoteID)
	return mapConstraint(err)
}

// update replaces the envelope only; index fields are fixed at creation time.
func (mt *messageTable) update(m *ChatMessageModel) error {
	sealed, err := crypto.Seal(mt.key, m.Props)
	if err != nil {
		return err
	}
	res, err := mt.db.Tx.Exec("UPDATE messages SET data = $1 WHERE id = $2", sealed, m.ID)
	if err != nil {
		return err
	}
	return mapAffected(res)
}

func (mt *messageTable) remove(m *ChatMessageModel) error {
	res, err := mt.db.Tx.Exec("DELETE FROM messages WHERE id = $1", m.ID)
	if err != nil {
		return err
	}
	return mapAffected(res)
}

func (mt *messageTable) fetchByID(id uuid.UUID) (*ChatMessageModel, error) {
	var row messageRow
	if err := mt.db.Tx.Get(&row, "SELECT * FROM messages WHERE id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return mt.decode(row)
}

func (mt *messageTable) fetchByRemoteID(remoteID string) (*ChatMessageModel, error) {
	var row messageRow
	if err := mt.db.Tx.Get(&row, "SELECT * FROM messages WHERE remote_id = $1", remoteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return mt.decode(row)
}

// list answers one ordered, filtered, paged query over a single
// (conversation, sender) pair. Bounds are strict: ord > minOrder and
// ord < maxOrder. Offset is applied after ordering, then limit.
func (mt *messageTable) list(conversationID uuid.UUID, senderID int, sort SortMode, minOrder, maxOrder *int, offset, limit int) ([]*ChatMessageModel, error) {
	q := "SELECT * FROM messages WHERE conversation_id = ? AND sender_id = ?"
	args := []interface{}{conversationID, senderID}
	if minOrder != nil {
		q += " AND ord > ?"
		args = append(args, *minOrder)
	}
	if maxOrder != nil {
		q += " AND ord < ?"
		args = append(args, *maxOrder)
	}
	if sort == Descending {
		q += " ORDER BY ord DESC"
	} else {
		q += " ORDER BY ord ASC"
	}
	q += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []messageRow
	if err := mt.db.Tx.Select(&rows, q, args...); err != nil {
		return nil, err
	}
	messages := make([]*ChatMessageModel, 0, len(rows))
	for _, row := range rows {
		m, err := mt.decode(row)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func (mt *messageTable) decode(row messageRow) (*ChatMessageModel, error) {
	props, err := crypto.Unseal(mt.key, row.Data)
	if err != nil {
		return nil, err
	}
	return &ChatMessageModel{
		ID:             row.ID,
		ConversationID: row.ConversationID,
		SenderID:       row.SenderID,
		Order:          row.Ord,
		RemoteID:       row.RemoteID,
		Props:          props,
	}, nil
}

package msgstore

import (
	"database/sql"

	"github.com/meow-io/go-msgstore/migration"
)

func storeMigrations() []*migration.Migration {
	return []*migration.Migration{
		{
			Name: "create record tables",
			Func: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE config (
						id TEXT PRIMARY KEY,
						data BLOB NOT NULL
					);

					CREATE TABLE contacts (
						id TEXT PRIMARY KEY,
						data BLOB NOT NULL
					);

					CREATE TABLE conversations (
						id TEXT PRIMARY KEY,
						data BLOB NOT NULL
					);

					CREATE TABLE device_identities (
						id TEXT PRIMARY KEY,
						data BLOB NOT NULL
					);

					CREATE TABLE jobs (
						id TEXT PRIMARY KEY,
						data BLOB NOT NULL
					);

					CREATE TABLE messages (
						id TEXT PRIMARY KEY,
						data BLOB NOT NULL,
						conversation_id TEXT NOT NULL,
						sender_id INTEGER NOT NULL,
						ord INTEGER NOT NULL,
						remote_id TEXT NOT NULL
					);
					`)
				return err
			},
			Revert: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					DROP TABLE messages;
					DROP TABLE jobs;
					DROP TABLE device_identities;
					DROP TABLE conversations;
					DROP TABLE contacts;
					DROP TABLE config;
					`)
				return err
			},
		},
		{
			Name: "index chat messages",
			Func: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE UNIQUE INDEX messages_remote_id on messages (remote_id);
					CREATE UNIQUE INDEX messages_conversation_sender_ord on messages (conversation_id, sender_id, ord);
					`)
				return err
			},
			Revert: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					DROP INDEX messages_conversation_sender_ord;
					DROP INDEX messages_remote_id;
					`)
				return err
			},
		},
	}
}

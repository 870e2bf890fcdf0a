// This package implements the encrypted local persistence layer backing a
// messaging client. It durably stores contacts, conversations, chat messages,
// device identities and background jobs, sealing every record at rest and
// exposing only a small set of plaintext index fields for lookup and ordering.
// Payloads are opaque to the store; the messaging engine consuming it owns
// their format, along with all transport and session crypto.
package msgstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/meow-io/go-msgstore/clock"
	"github.com/meow-io/go-msgstore/config"
	"github.com/meow-io/go-msgstore/crypto"
	"github.com/meow-io/go-msgstore/internal/db"
	"go.uber.org/zap"
)

const configKey = "config"

// Store is the single entry point the messaging engine talks to. Each Open
// yields an independent store context; nothing is shared between instances.
type Store struct {
	DB *db.Database

	config *config.Config
	log    *zap.SugaredLogger
	salt   string
	closed atomic.Bool

	contacts         *table[*ContactModel]
	conversations    *table[*ConversationModel]
	deviceIdentities *table[*DeviceIdentityModel]
	jobs             *table[*JobModel]
	messages         *messageTable
	envelopeKey      []byte
}

func databasePath(c *config.Config) string {
	return filepath.Join(c.RootDir, "data")
}

// Exists reports whether a store has been created under this config's root.
// Existence of the database file is the signal that an account is configured.
func Exists(c *config.Config) bool {
	_, err := os.Stat(databasePath(c))
	return err == nil
}

// Destroy erases the on-disk store without opening it. The salt file is left
// in place, it is lifecycle-scoped to the installation rather than to the
// database.
func Destroy(c *config.Config) error {
	p := databasePath(c)
	for _, f := range []string{p, p + "-wal", p + "-shm", p + "-journal"} {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Open sequences: read-or-create salt, derive keys from the passphrase,
// establish the connection, run migrations, construct repositories. Any
// failure aborts and leaves the prior on-disk state untouched; the store is
// never reachable in a partially migrated state.
func Open(c *config.Config, passphrase string) (*Store, error) {
	log := c.Logger("msgstore")
	absRootPath, err := filepath.Abs(c.RootDir)
	if err != nil {
		return nil, err
	}
	c.RootDir = absRootPath
	log.Debugf("opening store, using root path of %s", c.RootDir)

	if err := os.MkdirAll(c.RootDir, 0o700); err != nil {
		return nil, err
	}

	salt, err := ReadOrCreateSalt(c)
	if err != nil {
		return nil, fmt.Errorf("msgstore: error reading salt: %w", err)
	}
	master := crypto.DeriveKey([]byte(passphrase), []byte(salt))
	dbKey, envelopeKey, err := crypto.SplitKey(master)
	if err != nil {
		return nil, err
	}

	cl := clock.NewSystemClock()
	d, err := db.NewDatabase(c, cl, databasePath(c))
	if err != nil {
		return nil, err
	}
	if !d.Initialized() {
		if err := d.Initialize(dbKey); err != nil {
			return nil, fmt.Errorf("msgstore: error initializing database: %w", err)
		}
	}
	if err := d.Open(dbKey); err != nil {
		return nil, fmt.Errorf("msgstore: error opening database: %w", err)
	}
	if err := d.Migrate("_msgstore", storeMigrations()); err != nil {
		if serr := d.Shutdown(); serr != nil {
			log.Warnf("error shutting down after failed migration %#v", serr)
		}
		return nil, fmt.Errorf("msgstore: error migrating database: %w", err)
	}

	s := &Store{
		DB:          d,
		config:      c,
		log:         log,
		salt:        salt,
		envelopeKey: envelopeKey,
	}
	s.contacts = newTable(d, envelopeKey, "contacts",
		func(m *ContactModel) uuid.UUID { return m.ID },
		func(m *ContactModel) []byte { return m.Props },
		func(id uuid.UUID, props []byte) *ContactModel { return &ContactModel{ID: id, Props: props} })
	s.conversations = newTable(d, envelopeKey, "conversations",
		func(m *ConversationModel) uuid.UUID { return m.ID },
		func(m *ConversationModel) []byte { return m.Props },
		func(id uuid.UUID, props []byte) *ConversationModel { return &ConversationModel{ID: id, Props: props} })
	s.deviceIdentities = newTable(d, envelopeKey, "device_identities",
		func(m *DeviceIdentityModel) uuid.UUID { return m.ID },
		func(m *DeviceIdentityModel) []byte { return m.Props },
		func(id uuid.UUID, props []byte) *DeviceIdentityModel {
			return &DeviceIdentityModel{ID: id, Props: props}
		})
	s.jobs = newTable(d, envelopeKey, "jobs",
		func(m *JobModel) uuid.UUID { return m.ID },
		func(m *JobModel) []byte { return m.Props },
		func(id uuid.UUID, props []byte) *JobModel { return &JobModel{ID: id, Props: props} })
	s.messages = newMessageTable(d, envelopeKey)
	return s, nil
}

// Close releases the connection. It is safe to call while operations are in
// flight; those operations fail with ErrStoreClosed rather than hang. Calling
// Close twice is a no-op.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.DB.Shutdown()
}

func (s *Store) run(label string, f db.RunnerFunc) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	err := s.DB.Run(label, f)
	if errors.Is(err, db.ErrClosed) {
		return ErrStoreClosed
	}
	return err
}

func (s *Store) read(label string, f db.RunnerFunc) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	err := s.DB.RunReadOnly(label, f)
	if errors.Is(err, db.ErrClosed) {
		return ErrStoreClosed
	}
	return err
}

// Reclaims space after bulk deletions.
func (s *Store) Vacuum() error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	err := s.DB.Vacuum()
	if errors.Is(err, db.ErrClosed) {
		return ErrStoreClosed
	}
	return err
}

// Contacts

func (s *Store) FetchContacts() (recs []*ContactModel, err error) {
	err = s.read("fetch contacts", func() error {
		recs, err = s.contacts.fetchAll()
		return err
	})
	return
}

func (s *Store) CreateContact(m *ContactModel) error {
	return s.run("create contact", func() error { return s.contacts.create(m) })
}

func (s *Store) UpdateContact(m *ContactModel) error {
	return s.run("update contact", func() error { return s.contacts.update(m) })
}

func (s *Store) RemoveContact(m *ContactModel) error {
	return s.run("remove contact", func() error { return s.contacts.remove(m) })
}

// Conversations

func (s *Store) FetchConversations() (recs []*ConversationModel, err error) {
	err = s.read("fetch conversations", func() error {
		recs, err = s.conversations.fetchAll()
		return err
	})
	return
}

func (s *Store) CreateConversation(m *ConversationModel) error {
	return s.run("create conversation", func() error { return s.conversations.create(m) })
}

func (s *Store) UpdateConversation(m *ConversationModel) error {
	return s.run("update conversation", func() error { return s.conversations.update(m) })
}

func (s *Store) RemoveConversation(m *ConversationModel) error {
	return s.run("remove conversation", func() error { return s.conversations.remove(m) })
}

// Device identities

func (s *Store) FetchDeviceIdentities() (recs []*DeviceIdentityModel, err error) {
	err = s.read("fetch device identities", func() error {
		recs, err = s.deviceIdentities.fetchAll()
		return err
	})
	return
}

func (s *Store) CreateDeviceIdentity(m *DeviceIdentityModel) error {
	return s.run("create device identity", func() error { return s.deviceIdentities.create(m) })
}

func (s *Store) UpdateDeviceIdentity(m *DeviceIdentityModel) error {
	return s.run("update device identity", func() error { return s.deviceIdentities.update(m) })
}

func (s *Store) RemoveDeviceIdentity(m *DeviceIdentityModel) error {
	return s.run("remove device identity", func() error { return s.deviceIdentities.remove(m) })
}

// Jobs

func (s *Store) FetchJobs() (recs []*JobModel, err error) {
	err = s.read("fetch jobs", func() error {
		recs, err = s.jobs.fetchAll()
		return err
	})
	return
}

func (s *Store) CreateJob(m *JobModel) error {
	return s.run("create job", func() error { return s.jobs.create(m) })
}

func (s *Store) UpdateJob(m *JobModel) error {
	return s.run("update job", func() error { return s.jobs.update(m) })
}

func (s *Store) RemoveJob(m *JobModel) error {
	return s.run("remove job", func() error { return s.jobs.remove(m) })
}

// Chat messages

func (s *Store) FetchChatMessage(id uuid.UUID) (m *ChatMessageModel, err error) {
	err = s.read("fetch chat message", func() error {
		m, err = s.messages.fetchByID(id)
		return err
	})
	return
}

func (s *Store) FetchChatMessageByRemoteID(remoteID string) (m *ChatMessageModel, err error) {
	err = s.read("fetch chat message by remote id", func() error {
		m, err = s.messages.fetchByRemoteID(remoteID)
		return err
	})
	return
}

func (s *Store) CreateChatMessage(m *ChatMessageModel) error {
	return s.run("create chat message", func() error { return s.messages.create(m) })
}

func (s *Store) UpdateChatMessage(m *ChatMessageModel) error {
	return s.run("update chat message", func() error { return s.messages.update(m) })
}

func (s *Store) RemoveChatMessage(m *ChatMessageModel) error {
	return s.run("remove chat message", func() error { return s.messages.remove(m) })
}

// ListChatMessages answers one ordered, paged query over the
// (conversationID, senderID) pair, reflecting a single point-in-time
// snapshot. minOrder and maxOrder are strict, exclusive bounds on the
// per-sender sequence number; either or both may be nil. A nil error with an
// empty result is valid. The result is the building block for caller-side
// cursors paging over history with shrinking or growing bounds.
func (s *Store) ListChatMessages(conversationID uuid.UUID, senderID int, sort SortMode, minOrder, maxOrder *int, offset, limit int) (msgs []*ChatMessageModel, err error) {
	if limit <= 0 {
		if s.closed.Load() {
			return nil, ErrStoreClosed
		}
		return []*ChatMessageModel{}, nil
	}
	if minOrder != nil && maxOrder != nil && *minOrder >= *maxOrder {
		if s.closed.Load() {
			return nil, ErrStoreClosed
		}
		return []*ChatMessageModel{}, nil
	}
	err = s.read("list chat messages", func() error {
		msgs, err = s.messages.list(conversationID, senderID, sort, minOrder, maxOrder, offset, limit)
		return err
	})
	return
}

// Configuration singleton

func (s *Store) ReadConfig() (data []byte, err error) {
	err = s.read("read config", func() error {
		data, err = s.readConfigTx()
		return err
	})
	return
}

// ReadOrCreateConfig returns the stored configuration blob, persisting and
// returning initial when none exists yet.
func (s *Store) ReadOrCreateConfig(initial []byte) (data []byte, err error) {
	err = s.run("read or create config", func() error {
		data, err = s.readConfigTx()
		if errors.Is(err, ErrNotFound) {
			if err = s.writeConfigTx(initial); err != nil {
				return err
			}
			data = initial
			return nil
		}
		return err
	})
	return
}

func (s *Store) WriteConfig(data []byte) error {
	return s.run("write config", func() error { return s.writeConfigTx(data) })
}

func (s *Store) readConfigTx() ([]byte, error) {
	var sealed []byte
	if err := s.DB.Tx.Get(&sealed, "SELECT data FROM config WHERE id = $1", configKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return crypto.Unseal(s.envelopeKey, sealed)
}

func (s *Store) writeConfigTx(data []byte) error {
	sealed, err := crypto.Seal(s.envelopeKey, data)
	if err != nil {
		return err
	}
	_, err = s.DB.Tx.Exec("INSERT INTO config (id, data) VALUES ($1, $2) ON CONFLICT(id) DO UPDATE SET data = excluded.data", configKey, sealed)
	return err
}

// ReadLocalDeviceSalt returns the salt read when the store was opened. It is
// combined with the user passphrase, outside this store, to derive key
// material.
func (s *Store) ReadLocalDeviceSalt() string {
	return s.salt
}

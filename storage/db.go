package storage

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	// ErrNotFound is returned when a key is absent from the store.
	ErrNotFound = errors.New("storage: key not found")
	// ErrReadOnly is returned when a write is attempted through a snapshot.
	ErrReadOnly = errors.New("storage: read-only view")
)

// Reader exposes point lookups and ordered prefix scans.
type Reader interface {
	Get(key []byte) ([]byte, error)
	Iterate(prefix []byte, fn func(key, value []byte) error) error
}

// ReadWriter extends Reader with mutation.
type ReadWriter interface {
	Reader
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Database is the key-value store backing the ledger state. Every mutation
// goes through a Tx so a failed state transition leaves no trace.
type Database interface {
	Begin() (*Tx, error)
	Snapshot() (*Snapshot, error)
	Close()
}

// LevelDB is a goleveldb-backed Database. The same type serves the
// persistent node and the in-memory test/dev store.
type LevelDB struct {
	db *leveldb.DB
}

// NewMemDB opens a LevelDB instance on in-memory storage.
func NewMemDB() (*LevelDB, error) {
	db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open memory db: %w", err)
	}
	return &LevelDB{db: db}, nil
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Begin opens an atomic transaction. goleveldb permits a single open
// transaction; concurrent callers block until it is committed or discarded.
func (ldb *LevelDB) Begin() (*Tx, error) {
	tr, err := ldb.db.OpenTransaction()
	if err != nil {
		return nil, fmt.Errorf("storage: open transaction: %w", err)
	}
	return &Tx{tr: tr}, nil
}

// Snapshot returns a consistent read-only view of the committed state.
func (ldb *LevelDB) Snapshot() (*Snapshot, error) {
	snap, err := ldb.db.GetSnapshot()
	if err != nil {
		return nil, fmt.Errorf("storage: snapshot: %w", err)
	}
	return &Snapshot{snap: snap}, nil
}

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	ldb.db.Close()
}

// Tx is a pending atomic write set. Reads observe the transaction's own
// writes.
type Tx struct {
	tr   *leveldb.Transaction
	done bool
}

func (t *Tx) Get(key []byte) ([]byte, error) {
	value, err := t.tr.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (t *Tx) Put(key, value []byte) error {
	return t.tr.Put(key, value, nil)
}

func (t *Tx) Delete(key []byte) error {
	return t.tr.Delete(key, nil)
}

func (t *Tx) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	iter := t.tr.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	return drain(iter, fn)
}

// Commit applies the write set. The transaction cannot be reused.
func (t *Tx) Commit() error {
	if t.done {
		return fmt.Errorf("storage: transaction already finished")
	}
	t.done = true
	return t.tr.Commit()
}

// Discard drops every write. Calling Discard after Commit is a no-op.
func (t *Tx) Discard() {
	if t.done {
		return
	}
	t.done = true
	t.tr.Discard()
}

// Snapshot is a read-only point-in-time view.
type Snapshot struct {
	snap *leveldb.Snapshot
}

func (s *Snapshot) Get(key []byte) ([]byte, error) {
	value, err := s.snap.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *Snapshot) Put([]byte, []byte) error { return ErrReadOnly }

func (s *Snapshot) Delete([]byte) error { return ErrReadOnly }

func (s *Snapshot) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	iter := s.snap.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	return drain(iter, fn)
}

// Release frees the snapshot.
func (s *Snapshot) Release() {
	s.snap.Release()
}

type iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
}

func drain(iter iterator, fn func(key, value []byte) error) error {
	for iter.Next() {
		key := append([]byte(nil), iter.Key()...)
		value := append([]byte(nil), iter.Value()...)
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Package history keeps a local record of transactions submitted by ethwallet.
// It is informational only; the chain remains the source of truth.
package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/ethereum/go-ethereum/common"
)

const sentBucket = "sent"

// ErrClosed is returned when the store has been closed.
var ErrClosed = errors.New("history store closed")

// Record is one submitted transaction.
type Record struct {
	Hash     string    `json:"hash"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	ValueWei string    `json:"value_wei"`
	Nonce    uint64    `json:"nonce"`
	GasPrice string    `json:"gas_price_wei"`
	GasLimit uint64    `json:"gas_limit"`
	ChainID  string    `json:"chain_id"`
	SentAt   time.Time `json:"sent_at"`
}

// Store is a bolt-backed history file.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sentBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise history: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Add stores rec under its sender.
func (s *Store) Add(rec Record) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	if !common.IsHexAddress(rec.From) {
		return fmt.Errorf("invalid sender address %q", rec.From)
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		account, err := tx.Bucket([]byte(sentBucket)).CreateBucketIfNotExists(accountKey(rec.From))
		if err != nil {
			return err
		}
		return account.Put(recordKey(rec), data)
	})
}

// List returns up to limit records sent from addr, newest first.
// A limit of zero or less returns everything.
func (s *Store) List(addr common.Address, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}

	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		account := tx.Bucket([]byte(sentBucket)).Bucket(addr.Bytes())
		if account == nil {
			return nil
		}

		c := account.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt history record %x: %w", k, err)
			}
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func accountKey(addr string) []byte {
	return common.HexToAddress(addr).Bytes()
}

// recordKey orders records by send time, then hash.
func recordKey(rec Record) []byte {
	key := make([]byte, 8, 8+common.HashLength)
	binary.BigEndian.PutUint64(key, uint64(rec.SentAt.UnixNano()))
	return append(key, common.HexToHash(rec.Hash).Bytes()...)
}

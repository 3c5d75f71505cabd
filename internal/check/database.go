package check

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "checks"

// DB defines the interface for database operations
type DB interface {
	// SaveCheck saves a check to the database
	SaveCheck(c *Check) error

	// GetCheck retrieves a check by ID
	GetCheck(id string) (*Check, error)

	// ListChecks returns all checks
	ListChecks() ([]*Check, error)

	// DeleteCheck removes a check from the database
	DeleteCheck(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveCheck saves a check to the database
func (b *BoltDB) SaveCheck(c *Check) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshaling check: %w", err)
		}
		return bucket.Put([]byte(c.ID), data)
	})
}

// GetCheck retrieves a check by ID
func (b *BoltDB) GetCheck(id string) (*Check, error) {
	var c *Check
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("check not found: %s", id)
		}
		return json.Unmarshal(data, &c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListChecks returns all checks
func (b *BoltDB) ListChecks() ([]*Check, error) {
	checks := make([]*Check, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var c Check
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("unmarshaling check: %w", err)
			}
			checks = append(checks, &c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return checks, nil
}

// DeleteCheck removes a check from the database
func (b *BoltDB) DeleteCheck(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}

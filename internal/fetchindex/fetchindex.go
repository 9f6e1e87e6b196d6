package fetchindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketName    = "fetch_index"
	dbPermissions = 0600
)

// Status is the outcome of the most recent fetch for a name
type Status string

const (
	StatusFetched Status = "fetched"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Record keeps per-name fetch history
type Record struct {
	Attempts  uint64    `json:"attempts"`
	Failures  uint64    `json:"failures"`
	Status    Status    `json:"status"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Index persists fetch outcomes in a bbolt database
type Index struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open creates or opens the database at path
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := bbolt.Open(path, dbPermissions, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketName)); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Index{db: db, now: time.Now}, nil
}

// Record stores the outcome of one fetch attempt for name. Skipped names do
// not count as attempts.
func (ix *Index) Record(name string, status Status, cause error) error {
	return ix.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket %s not found", bucketName)
		}

		var rec Record
		if val := b.Get([]byte(name)); val != nil {
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("decode record %q: %w", name, err)
			}
		}

		if status != StatusSkipped {
			rec.Attempts++
		}
		rec.Status = status
		rec.LastError = ""
		if status == StatusFailed {
			rec.Failures++
			if cause != nil {
				rec.LastError = cause.Error()
			}
		}
		rec.UpdatedAt = ix.now().UTC()

		buf, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %q: %w", name, err)
		}
		return b.Put([]byte(name), buf)
	})
}

// Get returns the records for names; unknown names are omitted
func (ix *Index) Get(names []string) (map[string]Record, error) {
	out := make(map[string]Record, len(names))
	err := ix.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		for _, name := range names {
			val := b.Get([]byte(name))
			if val == nil {
				continue
			}
			var rec Record
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("decode record %q: %w", name, err)
			}
			out[name] = rec
		}
		return nil
	})
	return out, err
}

// All returns every record
func (ix *Index) All() (map[string]Record, error) {
	out := make(map[string]Record)
	err := ix.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %q: %w", k, err)
			}
			out[string(k)] = rec
			return nil
		})
	})
	return out, err
}

// Close closes the database connection.
func (ix *Index) Close() error {
	if ix.db != nil {
		return ix.db.Close()
	}
	return nil
}

package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/ebookctl/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketJobs = []byte("jobs")
)

// JobLedger implements domain.JobLedger using BoltDB.
type JobLedger struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access).
	// In memory-only mode it is the whole ledger.
	cache map[string][]byte

	now func() time.Time
}

// NewJobLedger opens the ledger for serverURL under baseCacheDir.
// An empty baseCacheDir keeps the ledger in memory.
func NewJobLedger(baseCacheDir, serverURL string) (*JobLedger, error) {
	if baseCacheDir == "" {
		// Memory-only mode (no persistence)
		return &JobLedger{cache: make(map[string][]byte), now: time.Now}, nil
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "ebookctl.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketJobs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &JobLedger{db: db, cache: make(map[string][]byte), now: time.Now}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (l *JobLedger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Record stores a new acknowledgment, replacing any record with the same job id
func (l *JobLedger) Record(rec domain.JobRecord) error {
	if rec.JobID == "" {
		return fmt.Errorf("record without job id")
	}
	ts := l.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = ts
	}
	rec.UpdatedAt = ts
	return l.set(rec.JobID, rec)
}

// SetOutcome records the terminal status observed for jobID.
// Unknown jobs (created elsewhere) get a minimal record.
func (l *JobLedger) SetOutcome(jobID string, status domain.BookStatus) (domain.JobRecord, error) {
	rec, ok := l.Get(jobID)
	if !ok {
		rec = domain.JobRecord{JobID: jobID, CreatedAt: l.now()}
	}
	rec.Outcome = status
	rec.UpdatedAt = l.now()
	if err := l.set(jobID, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// Get returns the record for jobID
func (l *JobLedger) Get(jobID string) (domain.JobRecord, bool) {
	var rec domain.JobRecord
	ok := l.get(jobID, &rec)
	return rec, ok
}

// List returns every record, oldest first
func (l *JobLedger) List() ([]domain.JobRecord, error) {
	var raw [][]byte

	if l.db == nil {
		l.mu.RLock()
		for _, v := range l.cache {
			raw = append(raw, v)
		}
		l.mu.RUnlock()
	} else {
		err := l.db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketJobs)
			if b == nil {
				return nil
			}
			return b.ForEach(func(_, v []byte) error {
				data := make([]byte, len(v))
				copy(data, v)
				raw = append(raw, data)
				return nil
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger: %w", err)
		}
	}

	records := make([]domain.JobRecord, 0, len(raw))
	for _, data := range raw {
		var rec domain.JobRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue // Skip records written by an incompatible version
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].JobID < records[j].JobID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// === Generic helpers ===

func (l *JobLedger) get(key string, dest interface{}) bool {
	// Check memory cache first
	l.mu.RLock()
	if data, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	l.mu.RUnlock()

	if l.db == nil {
		return false
	}

	var data []byte
	l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	l.mu.Lock()
	l.cache[key] = data
	l.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (l *JobLedger) set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.cache[key] = data
	l.mu.Unlock()

	if l.db == nil {
		return nil // Memory-only mode
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketJobs).Put([]byte(key), data)
	})
}

var _ domain.JobLedger = (*JobLedger)(nil)

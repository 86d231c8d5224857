package photos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketImages = []byte("images")

// record is the JSON envelope stored per avatar.
type record struct {
	Seed    string    `json:"seed"`
	Style   string    `json:"style"`
	Format  string    `json:"format"`
	URL     string    `json:"url"`
	SavedAt time.Time `json:"saved_at"`
	Data    []byte    `json:"data"`
}

// BoltLibrary saves avatars into a single bbolt database file.
type BoltLibrary struct {
	db     *bolt.DB
	path   string
	logger *log.Logger
}

// OpenBoltLibrary opens (or creates) the database at path.
func OpenBoltLibrary(path string, logger *log.Logger) (*BoltLibrary, error) {
	if logger == nil {
		logger = log.Default()
	}
	if path == "" {
		return nil, errors.New("bolt photo library needs a database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create library directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketImages)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltLibrary{db: db, path: path, logger: logger}, nil
}

// QueryWritePermission reports whether the database is open read-write.
func (l *BoltLibrary) QueryWritePermission(ctx context.Context) bool {
	if ctx.Err() != nil || l.db.IsReadOnly() {
		return false
	}
	err := l.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketImages) == nil {
			return errors.New("images bucket missing")
		}
		return nil
	})
	return err == nil
}

// Save implements Library. The returned location is "<db path>#<key>".
func (l *BoltLibrary) Save(ctx context.Context, item Item) (string, error) {
	if err := validate(ctx, item); err != nil {
		return "", err
	}

	savedAt := item.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	data, err := json.Marshal(record{
		Seed:    item.Seed,
		Style:   item.Style,
		Format:  item.Format,
		URL:     item.URL,
		SavedAt: savedAt.UTC(),
		Data:    item.Data,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	key := uuid.NewString()
	err = l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImages)
		if b == nil {
			return errors.New("images bucket missing")
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	l.logger.Debug("stored avatar", "db", l.path, "key", key, "bytes", len(item.Data))
	return l.path + "#" + key, nil
}

// Load returns a stored avatar by key.
func (l *BoltLibrary) Load(key string) (Item, error) {
	var rec record
	err := l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImages)
		if b == nil {
			return errors.New("images bucket missing")
		}
		v := b.Get([]byte(key))
		if v == nil {
			return fmt.Errorf("avatar %q not found", key)
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return Item{}, err
	}
	return Item{
		Seed:    rec.Seed,
		Style:   rec.Style,
		URL:     rec.URL,
		Format:  rec.Format,
		Data:    rec.Data,
		SavedAt: rec.SavedAt,
	}, nil
}

// Close releases the database file lock.
func (l *BoltLibrary) Close() error {
	return l.db.Close()
}

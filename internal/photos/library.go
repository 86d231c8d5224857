// Package photos stores saved avatars. Two backends are provided: a plain
// folder of image files and a single bbolt database.
package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
)

// ErrSaveFailed wraps every storage write failure.
var ErrSaveFailed = errors.New("save failed")

// Kind selects a Library backend.
type Kind string

const (
	KindDir  Kind = "dir"
	KindBolt Kind = "bolt"
)

// Kinds lists the supported backends.
func Kinds() []string {
	return []string{string(KindDir), string(KindBolt)}
}

// Item is one avatar handed to a Library.
type Item struct {
	Seed    string
	Style   string
	URL     string
	Format  string
	Data    []byte
	SavedAt time.Time
}

// Library is the photo storage collaborator.
type Library interface {
	// Save stores item and returns where it ended up.
	Save(ctx context.Context, item Item) (string, error)
	// QueryWritePermission reports whether Save can currently succeed.
	QueryWritePermission(ctx context.Context) bool
}

// Store is a Library that holds resources until closed.
type Store interface {
	Library
	io.Closer
}

// Open creates the backend named by kind. location is a folder for KindDir
// and a database file for KindBolt.
func Open(kind Kind, location string, logger *log.Logger) (Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	switch kind {
	case KindDir, "":
		return NewDirLibrary(location, logger), nil
	case KindBolt:
		lib, err := OpenBoltLibrary(location, logger)
		if err != nil {
			return nil, err
		}
		return lib, nil
	default:
		return nil, fmt.Errorf("invalid photo library %q (must be one of: %s)", kind, strings.Join(Kinds(), ", "))
	}
}

// ValidKind reports whether kind names a backend.
func ValidKind(kind string) bool {
	return slices.Contains(Kinds(), kind)
}

func validate(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if len(item.Data) == 0 {
		return fmt.Errorf("%w: no image data", ErrSaveFailed)
	}
	return nil
}

// sanitizeSeed makes a seed safe to use in a filename.
func sanitizeSeed(seed string) string {
	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, seed)

	// Truncate the sanitized seed if it's too long
	if runes := []rune(sanitized); len(runes) > 50 {
		sanitized = string(runes[:50])
	}
	if sanitized == "" {
		sanitized = "robohash"
	}
	return sanitized
}

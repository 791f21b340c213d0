package artwork

import (
	"go.uber.org/atomic"

	"github.com/artdocent/docent/internal/models"
)

// Reader is the read side of a Store. Consumers registered before an
// artwork is known hold a Reader and call Read at use time.
type Reader interface {
	Read() *models.Artwork
}

// Store is a single cell holding the current artwork, or nil. Writes are
// last-writer-wins and visible to every subsequent Read.
type Store struct {
	current atomic.Pointer[models.Artwork]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Write replaces the current artwork.
func (s *Store) Write(a models.Artwork) {
	s.current.Store(&a)
}

// Read returns the artwork current at the instant of the call, or nil.
// The returned value is shared and must not be modified.
func (s *Store) Read() *models.Artwork {
	return s.current.Load()
}

// Clear empties the store.
func (s *Store) Clear() {
	s.current.Store(nil)
}

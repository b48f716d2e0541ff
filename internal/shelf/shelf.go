// Package shelf keeps the reader's library of books in memory.
package shelf

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/oklog/ulid/v2"
)

var (
	ErrNotFound = errors.New("book not found")
	ErrEmpty    = errors.New("book has no content")
)

const Untitled = "Untitled"

// Book is one document on the shelf.
type Book struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Content    string    `json:"content,omitempty"`
	CoverColor string    `json:"coverColor"`
	Added      time.Time `json:"added"`
}

// Shelf is a concurrency-safe list of books, newest last.
type Shelf struct {
	mu    sync.RWMutex
	books []Book
}

// New returns an empty shelf.
func New() *Shelf {
	return &Shelf{}
}

// NewWithSamples returns a shelf holding the sample books.
func NewWithSamples() *Shelf {
	s := New()
	for _, b := range samples {
		if _, err := s.Add(b); err != nil {
			panic(err)
		}
	}
	return s
}

// Add stores a copy of b with a fresh ID. A missing title becomes Untitled and a
// missing or invalid cover color is generated.
func (s *Shelf) Add(b Book) (Book, error) {
	if strings.TrimSpace(b.Content) == "" {
		return Book{}, ErrEmpty
	}
	b.ID = ulid.Make().String()
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		b.Title = Untitled
	}
	b.Author = strings.TrimSpace(b.Author)
	if c, err := colorful.Hex(b.CoverColor); err == nil {
		b.CoverColor = c.Hex()
	} else {
		b.CoverColor = colorful.FastHappyColor().Hex()
	}
	if b.Added.IsZero() {
		b.Added = time.Now()
	}

	s.mu.Lock()
	s.books = append(s.books, b)
	s.mu.Unlock()
	return b, nil
}

// Get returns the book with id.
func (s *Shelf) Get(id string) (Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.books {
		if b.ID == id {
			return b, nil
		}
	}
	return Book{}, ErrNotFound
}

// List returns the books in insertion order.
func (s *Shelf) List() []Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Book(nil), s.books...)
}

// Delete removes the book with id.
func (s *Shelf) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.books {
		if b.ID == id {
			s.books = append(s.books[:i], s.books[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Len returns the number of books.
func (s *Shelf) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

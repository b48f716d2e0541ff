package shelf

import (
	"errors"
	"regexp"
	"sync"
	"testing"
)

var hexColor = regexp.MustCompile(`^#[0-9a-f]{6}$`)

func TestNewWithSamples(t *testing.T) {
	s := NewWithSamples()
	books := s.List()
	if len(books) != 3 {
		t.Fatalf("got %d sample books, want 3", len(books))
	}
	titles := []string{"荷塘月色", "乡土中国", "三体"}
	for i, b := range books {
		if b.Title != titles[i] {
			t.Errorf("book %d title = %q, want %q", i, b.Title, titles[i])
		}
		if b.ID == "" || b.Content == "" {
			t.Errorf("book %d missing id or content", i)
		}
	}
	if books[0].CoverColor != "#fcab47" {
		t.Errorf("cover color = %q", books[0].CoverColor)
	}
}

func TestAddGetDelete(t *testing.T) {
	s := New()
	b, err := s.Add(Book{Title: "  ", Content: "text", CoverColor: "not-a-color"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if b.Title != Untitled {
		t.Errorf("Title = %q, want %q", b.Title, Untitled)
	}
	if !hexColor.MatchString(b.CoverColor) {
		t.Errorf("generated cover color %q is not #rrggbb", b.CoverColor)
	}
	if b.Added.IsZero() {
		t.Error("Added not set")
	}

	got, err := s.Get(b.ID)
	if err != nil || got.Content != "text" {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	if err := s.Delete(b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestAddRejectsEmpty(t *testing.T) {
	s := New()
	if _, err := s.Add(Book{Title: "x", Content: " \n"}); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestIDsUnique(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(Book{Content: "c"})
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, b := range s.List() {
		if seen[b.ID] {
			t.Fatalf("duplicate id %s", b.ID)
		}
		seen[b.ID] = true
	}
	if len(seen) != 50 {
		t.Errorf("got %d books, want 50", len(seen))
	}
}

func TestListIsCopy(t *testing.T) {
	s := NewWithSamples()
	list := s.List()
	list[0].Title = "changed"
	if b, _ := s.Get(list[0].ID); b.Title == "changed" {
		t.Error("List exposed internal storage")
	}
}

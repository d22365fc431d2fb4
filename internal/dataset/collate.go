package dataset

import (
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Comparator orders display strings. It returns -1, 0 or +1.
type Comparator interface {
	Compare(a, b string) int
}

// Collator compares strings with the collation rules of a language.
type Collator struct {
	mu  sync.Mutex
	col *collate.Collator
}

// NewCollator builds a Collator for a BCP 47 tag such as "ja". Unknown or empty
// tags fall back to the root collation.
func NewCollator(lang string) *Collator {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		tag = language.Und
	}
	return &Collator{col: collate.New(tag)}
}

// Compare implements Comparator.
func (c *Collator) Compare(a, b string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.col.CompareString(a, b)
}

// ByteOrder compares strings by their bytes.
type ByteOrder struct{}

// Compare implements Comparator.
func (ByteOrder) Compare(a, b string) int {
	return strings.Compare(a, b)
}

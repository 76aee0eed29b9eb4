package core

import (
	"context"
	"errors"
	"time"
)

// Collections
const (
	CollectionUsers      = "users"
	CollectionCourses    = "courses"
	CollectionPlans      = "plans"
	CollectionCategories = "categories"
	CollectionChannels   = "channels"
)

var ErrRecordNotFound = errors.New("record not found")

type (
	// Document is a schemaless record, keyed by field name.
	Document map[string]interface{}

	// RecordStore is a document store addressed by (collection, id).
	RecordStore interface {
		// Get returns ErrRecordNotFound when no document is stored under id.
		Get(ctx context.Context, collection, id string) (Document, error)
		// Set merges doc fields into the stored document, creating it if needed.
		Set(ctx context.Context, collection, id string, doc Document) error
		// CreateIfAbsent stores doc only when nothing is stored under id yet.
		// created is false when another writer got there first; the stored document is left untouched.
		CreateIfAbsent(ctx context.Context, collection, id string, doc Document) (created bool, err error)
		Count(ctx context.Context, collection string) (int, error)
	}
)

// String returns the string stored under key, or "".
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Time returns the time stored under key.
// Stores that round-trip through JSON hand times back as RFC 3339 strings.
func (d Document) Time(key string) time.Time {
	switch v := d[key].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	c := make(Document, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

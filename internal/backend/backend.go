// Package backend is the document-store client the sync layer is built on.
// Collections are addressed by slash-separated paths following the
// artifacts/{appId}/... convention; every implementation provides document
// CRUD plus push-based live queries where each push delivers the full
// current snapshot of the watched collection.
package backend

import (
	"context"
	"errors"
)

var (
	// ErrUnauthenticated is returned for any mutation attempted without an
	// active session.
	ErrUnauthenticated = errors.New("backend: no authenticated session")
	// ErrNotFound is returned when an update or delete references a
	// document that does not exist under the caller's scope.
	ErrNotFound = errors.New("backend: document not found")
	// ErrUnavailable wraps transport-level failures talking to the store.
	ErrUnavailable = errors.New("backend: store unavailable")
)

// Document is one stored record: a server-assigned id plus raw fields.
type Document struct {
	ID   string
	Data map[string]any
}

// Store provides document CRUD addressed by collection path.
type Store interface {
	// Add inserts a document with a server-assigned id and returns the id.
	Add(ctx context.Context, path string, data map[string]any) (string, error)
	// Set writes a document at a known id. With merge it field-merges into
	// an existing document, creating it when absent (upsert); without
	// merge it replaces the document wholesale.
	Set(ctx context.Context, path, id string, data map[string]any, merge bool) error
	// Update field-merges into an existing document and fails with
	// ErrNotFound when the document does not exist.
	Update(ctx context.Context, path, id string, patch map[string]any) error
	Delete(ctx context.Context, path, id string) error
	Get(ctx context.Context, path, id string) (*Document, error)
	GetAll(ctx context.Context, path string) ([]Document, error)
}

// Handle cancels one live subscription. Stop is idempotent.
type Handle interface {
	Stop()
}

// Watcher registers push-based live queries. The callback receives the
// full snapshot of the collection on every change, and once right after
// the watch is established.
type Watcher interface {
	Watch(ctx context.Context, path string, fn func([]Document)) (Handle, error)
}

// Client bundles one configured store connection. It is injected into the
// session manager and mutation gateway explicitly rather than living as a
// package-level singleton.
type Client struct {
	Store   Store
	Watcher Watcher
	AppID   string
}

func NewClient(store Store, watcher Watcher, appID string) *Client {
	return &Client{Store: store, Watcher: watcher, AppID: appID}
}

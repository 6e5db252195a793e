package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oncontrol/platform/pkg/logging"
)

// DB is the subset of pgxpool.Pool the document store needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Publisher fans out a change notification for a collection path so live
// subscribers re-read their snapshot.
type Publisher interface {
	Publish(ctx context.Context, path string)
}

// DocStore keeps documents in a single Postgres table with a JSONB payload
// per document. Field-level merges use the jsonb || operator, which is
// also what gives Update/Set-with-merge their "only supplied fields
// change" semantics.
type DocStore struct {
	db     DB
	pub    Publisher
	logger *logging.Logger
	tracer trace.Tracer
}

func NewDocStore(db DB, pub Publisher, logger *logging.Logger) *DocStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &DocStore{
		db:     db,
		pub:    pub,
		logger: logger.Component("docstore"),
		tracer: otel.Tracer("oncontrol/backend"),
	}
}

func (s *DocStore) Add(ctx context.Context, path string, data map[string]any) (string, error) {
	ctx, span := s.startSpan(ctx, "docstore.Add", path)
	defer span.End()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	id := uuid.NewString()
	_, err = s.db.Exec(ctx, `
		INSERT INTO documents (path, id, data, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, now(), now())`, path, id, payload)
	if err != nil {
		return "", fmt.Errorf("%w: add %s: %v", ErrUnavailable, path, err)
	}
	s.notify(ctx, path)
	return id, nil
}

func (s *DocStore) Set(ctx context.Context, path, id string, data map[string]any, merge bool) error {
	ctx, span := s.startSpan(ctx, "docstore.Set", path)
	defer span.End()

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	query := `
		INSERT INTO documents (path, id, data, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, now(), now())
		ON CONFLICT (path, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	if merge {
		query = `
		INSERT INTO documents (path, id, data, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, now(), now())
		ON CONFLICT (path, id) DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()`
	}
	if _, err := s.db.Exec(ctx, query, path, id, payload); err != nil {
		return fmt.Errorf("%w: set %s/%s: %v", ErrUnavailable, path, id, err)
	}
	s.notify(ctx, path)
	return nil
}

func (s *DocStore) Update(ctx context.Context, path, id string, patch map[string]any) error {
	ctx, span := s.startSpan(ctx, "docstore.Update", path)
	defer span.End()

	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		WHERE path = $1 AND id = $2`, path, id, payload)
	if err != nil {
		return fmt.Errorf("%w: update %s/%s: %v", ErrUnavailable, path, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s/%s: %w", path, id, ErrNotFound)
	}
	s.notify(ctx, path)
	return nil
}

func (s *DocStore) Delete(ctx context.Context, path, id string) error {
	ctx, span := s.startSpan(ctx, "docstore.Delete", path)
	defer span.End()

	if _, err := s.db.Exec(ctx, `DELETE FROM documents WHERE path = $1 AND id = $2`, path, id); err != nil {
		return fmt.Errorf("%w: delete %s/%s: %v", ErrUnavailable, path, id, err)
	}
	s.notify(ctx, path)
	return nil
}

func (s *DocStore) Get(ctx context.Context, path, id string) (*Document, error) {
	ctx, span := s.startSpan(ctx, "docstore.Get", path)
	defer span.End()

	var payload []byte
	err := s.db.QueryRow(ctx, `SELECT data FROM documents WHERE path = $1 AND id = $2`, path, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s/%s: %v", ErrUnavailable, path, id, err)
	}
	doc := Document{ID: id}
	if err := json.Unmarshal(payload, &doc.Data); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", path, id, err)
	}
	return &doc, nil
}

func (s *DocStore) GetAll(ctx context.Context, path string) ([]Document, error) {
	ctx, span := s.startSpan(ctx, "docstore.GetAll", path)
	defer span.End()

	rows, err := s.db.Query(ctx, `
		SELECT id, data FROM documents WHERE path = $1 ORDER BY created_at, id`, path)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, path, err)
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		var (
			doc     Document
			payload []byte
		)
		if err := rows.Scan(&doc.ID, &payload); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if err := json.Unmarshal(payload, &doc.Data); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", path, doc.ID, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *DocStore) notify(ctx context.Context, path string) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(ctx, path)
}

func (s *DocStore) startSpan(ctx context.Context, name, path string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("doc.path", path)))
}

// Package data contains the Postgres-backed document store.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campusgate/portal-api/internal/data/pgxutil"
	apperrors "github.com/campusgate/portal-api/internal/errors"
	"github.com/campusgate/portal-api/internal/ports"
)

// channelDocumentChanged is the NOTIFY channel raised by the documents
// trigger. The payload is "collection:key".
const channelDocumentChanged = "document_changed"

// retryListenDelay paces reconnect attempts when a LISTEN connection drops.
const retryListenDelay = time.Second

// DocumentStore implements ports.DocumentStore on a jsonb documents table.
type DocumentStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDocumentStore creates a document store. A nil logger falls back to
// slog.Default.
func NewDocumentStore(db *sql.DB, logger *slog.Logger) *DocumentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentStore{db: db, logger: logger.With("component", "documents")}
}

// GetDocument fetches one document. Absence is (nil, nil), not an error.
func (s *DocumentStore) GetDocument(ctx context.Context, collection, key string) (ports.Document, error) {
	var doc ports.Document
	err := pgxutil.WithPgxConn(ctx, s.db, func(conn *pgx.Conn) error {
		var raw []byte
		if scanErr := conn.QueryRow(ctx,
			`SELECT doc FROM documents WHERE collection = $1 AND key = $2`,
			collection, key,
		).Scan(&raw); scanErr != nil {
			return scanErr
		}
		return json.Unmarshal(raw, &doc)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get document %s/%s: %w", collection, key, err))
	}
	return doc, nil
}

// QueryByField returns every document in a collection whose top-level
// field equals value. No matches is an empty slice, not an error.
func (s *DocumentStore) QueryByField(ctx context.Context, collection, field, value string) ([]ports.Document, error) {
	var docs []ports.Document
	err := pgxutil.WithPgxConn(ctx, s.db, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx,
			`SELECT doc FROM documents WHERE collection = $1 AND doc->>$2 = $3 ORDER BY key`,
			collection, field, value,
		)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		for rows.Next() {
			var raw []byte
			if scanErr := rows.Scan(&raw); scanErr != nil {
				return scanErr
			}
			var doc ports.Document
			if decodeErr := json.Unmarshal(raw, &doc); decodeErr != nil {
				return decodeErr
			}
			docs = append(docs, doc)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("query %s by %s: %w", collection, field, err))
	}
	return docs, nil
}

// PutDocument creates or replaces a document. The documents trigger
// notifies subscribers.
func (s *DocumentStore) PutDocument(ctx context.Context, collection, key string, doc ports.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return apperrors.Validation(fmt.Sprintf("encode document %s/%s: %v", collection, key, err))
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, doc)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, key)
		DO UPDATE SET doc = excluded.doc, updated_at = now()`,
		collection, key, raw,
	); err != nil {
		return apperrors.MapDBError(fmt.Errorf("put document %s/%s: %w", collection, key, err))
	}
	return nil
}

// DeleteDocument removes a document. Deleting an absent key is a no-op.
func (s *DocumentStore) DeleteDocument(ctx context.Context, collection, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND key = $2`,
		collection, key,
	); err != nil {
		return apperrors.MapDBError(fmt.Errorf("delete document %s/%s: %w", collection, key, err))
	}
	return nil
}

// Subscribe invokes onChange for every change to the collection until the
// returned unsubscribe function is called or ctx ends. The LISTEN
// connection reconnects on transient failures.
func (s *DocumentStore) Subscribe(ctx context.Context, collection string, onChange func(collection, key string)) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	go s.listenLoop(subCtx, collection, onChange)
	return cancel, nil
}

func (s *DocumentStore) listenLoop(ctx context.Context, collection string, onChange func(collection, key string)) {
	for {
		err := s.listenOnce(ctx, collection, onChange)
		if ctx.Err() != nil {
			return
		}
		s.logger.WarnContext(ctx, "document listen dropped, reconnecting",
			"collection", collection, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryListenDelay):
		}
	}
}

func (s *DocumentStore) listenOnce(ctx context.Context, collection string, onChange func(collection, key string)) error {
	return pgxutil.WithPgxConn(ctx, s.db, func(conn *pgx.Conn) error {
		quoted := pgx.Identifier{channelDocumentChanged}.Sanitize()
		if _, err := conn.Exec(ctx, "LISTEN "+quoted); err != nil {
			return fmt.Errorf("listen %s: %w", channelDocumentChanged, err)
		}
		defer func() {
			if _, err := conn.Exec(context.Background(), "UNLISTEN "+quoted); err != nil {
				s.logger.Warn("unlisten failed",
					"channel", channelDocumentChanged, "error", err)
			}
		}()

		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				return err
			}
			col, key, ok := strings.Cut(n.Payload, ":")
			if ok && col == collection {
				onChange(col, key)
			}
		}
	})
}

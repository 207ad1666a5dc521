package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ResponseRepo is the local learner response log. It implements BlobSource
// and BlobSink.
type ResponseRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var (
	_ BlobSource = (*ResponseRepo)(nil)
	_ BlobSink   = (*ResponseRepo)(nil)
)

// AppendBlob stores blob verbatim. The row id is taken from the blob's "id"
// field when present, otherwise a fresh uuid is assigned.
func (r *ResponseRepo) AppendBlob(ctx context.Context, blob json.RawMessage) error {
	if !json.Valid(blob) {
		return &StoreError{Op: "append", Err: errors.New("blob is not valid JSON")}
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return &StoreError{Op: "append", Err: err}
	}

	query, args, err := sqlBuilder.Insert("response_events").
		Columns("sequence", "event_id", "created_at", "body").
		Values(seqNum, blobID(blob), time.Now().UTC(), string(blob)).
		ToSql()
	if err != nil {
		return &StoreError{Op: "append", Err: err}
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return &StoreError{Op: "append", Err: err}
	}
	return nil
}

// FetchBlobs returns up to limit blobs, newest first. A limit of 0 returns all.
func (r *ResponseRepo) FetchBlobs(ctx context.Context, limit int) ([]json.RawMessage, error) {
	q := sqlBuilder.Select("body").From("response_events").OrderBy("sequence DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, &StoreError{Op: "fetch", Err: err}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: "fetch", Err: err}
	}
	defer rows.Close()

	var blobs []json.RawMessage
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, &StoreError{Op: "fetch", Err: err}
		}
		blobs = append(blobs, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "fetch", Err: err}
	}
	return blobs, nil
}

// Count returns the number of stored blobs.
func (r *ResponseRepo) Count(ctx context.Context) (int, error) {
	query, args, err := sqlBuilder.Select("COUNT(*)").From("response_events").ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, &StoreError{Op: "count", Err: err}
	}
	return n, nil
}

func blobID(blob json.RawMessage) string {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(blob, &head); err == nil && head.ID != "" {
		return head.ID
	}
	return uuid.NewString()
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore keeps values as objects in a Cloud Storage bucket. Every save also
// writes a timestamped copy under the history prefix.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
	now    func() time.Time
}

func NewGCSStore(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs store: bucket is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) Save(ctx context.Context, key, value string) error {
	if err := s.write(ctx, s.objectName(key), value); err != nil {
		return err
	}
	return s.write(ctx, s.historyName(key, s.now()), value)
}

func (s *GCSStore) write(ctx context.Context, name, value string) error {
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"

	if _, err := io.WriteString(w, value); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", name, err)
	}
	return nil
}

func (s *GCSStore) Load(ctx context.Context, key string) (string, error) {
	return s.read(ctx, s.objectName(key))
}

func (s *GCSStore) read(ctx context.Context, name string) (string, error) {
	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", name, err)
	}
	return string(data), nil
}

func (s *GCSStore) History(ctx context.Context, key string, limit int) ([]Entry, error) {
	query := &storage.Query{Prefix: s.historyPrefix(key)}

	var entries []Entry
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		entries = append(entries, Entry{ID: attrs.Name, SavedAt: attrs.Created})
	}

	// object names start with a sortable timestamp
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	for i := range entries {
		v, err := s.read(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Value = v
	}
	return entries, nil
}

func (s *GCSStore) objectName(key string) string {
	return path.Join(s.prefix, key+".txt")
}

func (s *GCSStore) historyPrefix(key string) string {
	return path.Join(s.prefix, "history", key) + "/"
}

func (s *GCSStore) historyName(key string, t time.Time) string {
	return s.historyPrefix(key) + t.UTC().Format("20060102T150405.000000000Z") + "-" + uuid.NewString()[:8] + ".txt"
}

// Package reviews serves published patient reviews, both to the site and as
// testimonials for the chat assistant.
package reviews

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Review is a published patient review.
type Review struct {
	ID                 string    `json:"id"`
	ReviewerName       string    `json:"reviewer_name"`
	Rating             int       `json:"rating"`
	Excerpt            string    `json:"excerpt"`
	Source             string    `json:"source,omitempty"`
	SourceURL          string    `json:"source_url,omitempty"`
	ServiceTags        []string  `json:"service_tags"`
	PersonaTags        []string  `json:"persona_tags"`
	IsFeatured         bool      `json:"is_featured"`
	ShowInTransparency bool      `json:"show_in_transparency"`
	PublishedAt        time.Time `json:"published_at"`
}

// Filter narrows a listing. Zero values mean no constraint.
type Filter struct {
	Service      string
	Persona      string
	FeaturedOnly bool
	Transparency bool
	Rating       int
	Limit        int
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	default:
		return f.Limit
	}
}

// Store lists reviews newest first.
type Store interface {
	List(ctx context.Context, f Filter) ([]Review, error)
}

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore reads the reviews table.
type PostgresStore struct {
	pool db
}

func NewPostgresStore(pool db) *PostgresStore {
	if pool == nil {
		panic("reviews: db cannot be nil")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Review, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Service != "" {
		add("$%d = ANY(service_tags)", f.Service)
	}
	if f.Persona != "" {
		add("$%d = ANY(persona_tags)", f.Persona)
	}
	if f.Rating > 0 {
		add("rating = $%d", f.Rating)
	}
	if f.FeaturedOnly {
		where = append(where, "is_featured")
	}
	if f.Transparency {
		where = append(where, "show_in_transparency")
	}

	query := `SELECT id, reviewer_name, rating, excerpt, COALESCE(source, ''), COALESCE(source_url, ''),
		service_tags, persona_tags, is_featured, show_in_transparency, published_at
		FROM reviews`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.limit())
	query += fmt.Sprintf(" ORDER BY published_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reviews: list: %w", err)
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.ReviewerName, &r.Rating, &r.Excerpt, &r.Source, &r.SourceURL,
			&r.ServiceTags, &r.PersonaTags, &r.IsFeatured, &r.ShowInTransparency, &r.PublishedAt); err != nil {
			return nil, fmt.Errorf("reviews: scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reviews: list: %w", err)
	}
	return out, nil
}

// Add inserts a review. Used by seeding and tests.
func (s *PostgresStore) Add(ctx context.Context, r Review) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reviews (id, reviewer_name, rating, excerpt, source, source_url, service_tags, persona_tags, is_featured, show_in_transparency, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.ID, r.ReviewerName, r.Rating, r.Excerpt, r.Source, r.SourceURL, r.ServiceTags, r.PersonaTags, r.IsFeatured, r.ShowInTransparency, r.PublishedAt)
	if err != nil {
		return fmt.Errorf("reviews: insert: %w", err)
	}
	return nil
}

// MemoryStore holds reviews in process.
type MemoryStore struct {
	mu      sync.RWMutex
	reviews []Review
}

func NewMemoryStore(seed ...Review) *MemoryStore {
	return &MemoryStore{reviews: append([]Review(nil), seed...)}
}

func (s *MemoryStore) Add(_ context.Context, r Review) error {
	s.mu.Lock()
	s.reviews = append(s.reviews, r)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]Review, error) {
	s.mu.RLock()
	matched := make([]Review, 0, len(s.reviews))
	for _, r := range s.reviews {
		if f.Service != "" && !slices.Contains(r.ServiceTags, f.Service) {
			continue
		}
		if f.Persona != "" && !slices.Contains(r.PersonaTags, f.Persona) {
			continue
		}
		if f.Rating > 0 && r.Rating != f.Rating {
			continue
		}
		if f.FeaturedOnly && !r.IsFeatured {
			continue
		}
		if f.Transparency && !r.ShowInTransparency {
			continue
		}
		matched = append(matched, r)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].PublishedAt.After(matched[j].PublishedAt)
	})
	if n := f.limit(); len(matched) > n {
		matched = matched[:n]
	}
	return matched, nil
}

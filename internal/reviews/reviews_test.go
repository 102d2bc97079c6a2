package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed() []Review {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []Review{
		{ID: "r1", ReviewerName: "Dana K.", Rating: 5, Excerpt: "Back at work in six weeks.", PersonaTags: []string{"injured_worker"}, ServiceTags: []string{"wcb-rehabilitation"}, IsFeatured: true, PublishedAt: base},
		{ID: "r2", ReviewerName: "Mo T.", Rating: 5, Excerpt: "Great after my collision.", PersonaTags: []string{"mva"}, PublishedAt: base.Add(24 * time.Hour)},
		{ID: "r3", ReviewerName: "Lee R.", Rating: 4, Excerpt: "Helpful team.", PersonaTags: []string{"injured_worker"}, PublishedAt: base.Add(48 * time.Hour)},
		{ID: "r4", ReviewerName: "Kim P.", Rating: 5, Excerpt: "Tried other clinics first, this one worked.", PersonaTags: []string{"injured_worker"}, PublishedAt: base.Add(72 * time.Hour)},
	}
}

func TestMemoryStoreFilters(t *testing.T) {
	store := NewMemoryStore(seed()...)
	ctx := context.Background()

	list, err := store.List(ctx, Filter{Persona: "injured_worker", Rating: 5})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r4", list[0].ID, "newest first")

	list, err = store.List(ctx, Filter{FeaturedOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)

	list, err = store.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = store.List(ctx, Filter{Service: "wcb-rehabilitation"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostgresStoreListBuildsFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "reviewer_name", "rating", "excerpt", "source", "source_url", "service_tags", "persona_tags", "is_featured", "show_in_transparency", "published_at"}).
		AddRow("r1", "Dana K.", 5, "Back at work.", "google", "", []string{"wcb-rehabilitation"}, []string{"injured_worker"}, true, false, now)
	mock.ExpectQuery(`FROM reviews WHERE \$1 = ANY\(persona_tags\) AND rating = \$2 ORDER BY published_at DESC LIMIT \$3`).
		WithArgs("injured_worker", 5, 2).
		WillReturnRows(rows)

	list, err := NewPostgresStore(mock).List(context.Background(), Filter{Persona: "injured_worker", Rating: 5, Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Dana K.", list[0].ReviewerName)
	assert.Equal(t, []string{"injured_worker"}, list[0].PersonaTags)
	require.NoError(t, mock.ExpectationsWereMet())
}

type brokenStore struct{}

func (brokenStore) List(context.Context, Filter) ([]Review, error) {
	return nil, errors.New("db down")
}

func TestHandlerList(t *testing.T) {
	h := NewHandler(NewMemoryStore(seed()...), nil)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/reviews?persona=mva", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Reviews []Review `json:"reviews"`
		Count   int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "r2", body.Reviews[0].ID)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/reviews?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	NewHandler(brokenStore{}, nil).List(rec, httptest.NewRequest(http.MethodGet, "/reviews", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

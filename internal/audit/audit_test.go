package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"research-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// FileStore
// ==========================

func TestFileStore_LayoutPerKind(t *testing.T) {
	tests := []struct {
		kind   Kind
		dir    string
		prefix string
	}{
		{KindSearchResults, "serpai_folder", "search_result_"},
		{KindPreCrawl, "precrawl_results", "precrawl_result_"},
		{KindFinal, "final_results", "final_result_"},
		{KindUserResponse, "user_response", "user_response_result_"},
	}

	root := t.TempDir()
	store := NewFileStore(root)

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			path, err := store.Save(context.Background(), tt.kind, map[string]string{"k": "v"})
			require.NoError(t, err)

			assert.Equal(t, filepath.Join(root, tt.dir), filepath.Dir(path))
			name := filepath.Base(path)
			assert.True(t, strings.HasPrefix(name, tt.prefix), name)
			assert.True(t, strings.HasSuffix(name, ".json"), name)
		})
	}
}

func TestFileStore_AnswerRoundTrips(t *testing.T) {
	store := NewFileStore(t.TempDir())
	answer := (&models.SynthesizedAnswer{
		DetailedAnalysis: "EVs score well.",
		Websites: []models.Website{
			{FaviconURL: "https://a.example/f.png", Link: "https://a.example", Snippet: "s"},
		},
	}).Normalize()

	path, err := store.Save(context.Background(), KindUserResponse, answer)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var back models.SynthesizedAnswer
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *answer, back)
	assert.Contains(t, string(data), `"videos": []`)
}

func TestFileStore_UniqueNames(t *testing.T) {
	store := NewFileStore(t.TempDir())
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		path, err := store.Save(context.Background(), KindFinal, []int{i})
		require.NoError(t, err)
		assert.False(t, seen[path])
		seen[path] = true
	}
}

func TestFileStore_Errors(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.Save(context.Background(), Kind("bogus"), nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = store.Save(context.Background(), KindFinal, make(chan int))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Save(ctx, KindFinal, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

// ==========================
// PostgresStore
// ==========================

func TestPostgresStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS audit_artifacts")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_audit_artifacts_kind")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	store, err := NewPostgresStore(context.Background(), db)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(insertArtifact)).
		WithArgs(sqlmock.AnyArg(), "precrawl_result", []byte(`[{"link":"https://a.example"}]`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := store.Save(context.Background(), KindPreCrawl, []map[string]string{{"link": "https://a.example"}})
	require.NoError(t, err)
	assert.Len(t, id, 36)

	mock.ExpectExec(regexp.QuoteMeta(insertArtifact)).WillReturnError(errors.New("connection reset"))
	_, err = store.Save(context.Background(), KindFinal, 1)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresStore_MigrationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	_, err = NewPostgresStore(context.Background(), db)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// MultiStore / NopStore
// ==========================

type failingStore struct{}

func (failingStore) Save(ctx context.Context, kind Kind, v interface{}) (string, error) {
	return "", errors.New("disk full")
}

func TestMultiStore(t *testing.T) {
	root := t.TempDir()
	m := MultiStore{NewFileStore(root), failingStore{}}

	ref, err := m.Save(context.Background(), KindFinal, 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.FileExists(t, ref)
}

func TestNopStore(t *testing.T) {
	ref, err := NopStore{}.Save(context.Background(), KindFinal, 1)
	assert.NoError(t, err)
	assert.Empty(t, ref)
}

// ==========================
// ElasticStore
// ==========================

func newElasticServer(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticStore_IndexesDocument(t *testing.T) {
	var (
		path string
		doc  map[string]interface{}
	)
	client := newElasticServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &doc))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	})

	store := NewElasticStore(client, "research-audit")
	id, err := store.Save(context.Background(), KindPreCrawl, []models.ScrapeTarget{{Link: "https://a.example.com"}})
	require.NoError(t, err)

	assert.Equal(t, "/research-audit/_doc/"+id, path)
	assert.Equal(t, id, doc["id"])
	assert.Equal(t, string(KindPreCrawl), doc["kind"])
	assert.NotEmpty(t, doc["createdAt"])

	payload, ok := doc["payload"].([]interface{})
	require.True(t, ok)
	assert.Len(t, payload, 1)
}

func TestElasticStore_ErrorResponse(t *testing.T) {
	client := newElasticServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"unavailable"}`)
	})

	_, err := NewElasticStore(client, "research-audit").Save(context.Background(), KindFinal, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestElasticStore_UnknownKind(t *testing.T) {
	client := newElasticServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := NewElasticStore(client, "research-audit").Save(context.Background(), Kind("bogus"), 1)
	assert.Error(t, err)
}

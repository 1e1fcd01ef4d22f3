package search

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/loupe-dev/loupe/internal/config"
	"github.com/loupe-dev/loupe/internal/engine"
	"github.com/loupe-dev/loupe/internal/index"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"handle_jwt_auth", []string{"handle", "jwt", "auth"}},
		{"handleJwtAuth", []string{"handle", "jwt", "auth"}},
		{"HTTPSConnection", []string{"https", "connection"}},
		{"JWT API authentication", []string{"jwt", "api", "authentication"}},
		{"parse-user-tokens", []string{"parse", "user", "tokens"}},
		{"Store.Close", []string{"store", "close"}},
		{"", nil},
		{"___", nil},
	}
	for _, c := range cases {
		if got := Tokenize(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestBM25RanksRelevantFirst(t *testing.T) {
	corpus := [][]string{
		Tokenize("handle JWT authentication for incoming requests"),
		Tokenize("parse user tokens from the database"),
		Tokenize("render the settings page"),
	}
	model := newBM25(corpus, 1.5, 0.75)

	ranked := model.rank(Tokenize("JWT authentication"), 10)
	if len(ranked) == 0 || ranked[0].Index != 0 {
		t.Fatalf("expected doc 0 first, got %+v", ranked)
	}
	for _, hit := range ranked {
		if hit.Score <= 0 {
			t.Fatalf("zero-score hit survived: %+v", hit)
		}
	}
}

func TestBM25RespectsLimit(t *testing.T) {
	corpus := [][]string{
		{"alpha", "beta"},
		{"alpha", "gamma"},
		{"alpha", "delta"},
	}
	model := newBM25(corpus, 1.5, 0.75)
	if got := model.rank([]string{"alpha"}, 2); len(got) > 2 {
		t.Fatalf("limit ignored: %d results", len(got))
	}
	if got := model.rank([]string{"alpha"}, 0); got != nil {
		t.Fatalf("zero limit should return nothing, got %v", got)
	}
}

func TestBM25EmptyCorpus(t *testing.T) {
	model := newBM25(nil, 1.5, 0.75)
	if got := model.rank([]string{"anything"}, 5); len(got) != 0 {
		t.Fatalf("empty corpus returned hits: %v", got)
	}
}

const searchFixture = `package auth

// VerifyToken checks a JWT signature and expiry.
func VerifyToken(raw string) error {
	return nil
}

// RenderSettings draws the account settings page.
func RenderSettings() string {
	return ""
}
`

func setupEngine(t *testing.T) *Engine {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "auth"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "auth/auth.go"), []byte(searchFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := index.Create(root)
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if _, err := engine.New(root, store).Run(context.Background()); err != nil {
		t.Fatalf("index: %v", err)
	}
	return New(root, store, config.Default().Search)
}

func TestSearchMatchesDocs(t *testing.T) {
	e := setupEngine(t)

	results, err := e.Search(context.Background(), "JWT signature")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].QualifiedName != "VerifyToken" {
		t.Fatalf("expected VerifyToken first, got %+v", results[0])
	}
	if results[0].Score <= 0 {
		t.Fatalf("non-positive score: %+v", results[0])
	}
}

func TestSearchPrefersSummaries(t *testing.T) {
	e := setupEngine(t)

	records, err := e.Store.LookupByName("auth/auth.go:RenderSettings")
	if err != nil || len(records) != 1 {
		t.Fatalf("lookup: %v", err)
	}
	rec := records[0]
	if err := e.Store.RecordSummary(rec.ID, "Handles JWT refresh on the settings screen.", rec.StructuralHash); err != nil {
		t.Fatalf("record summary: %v", err)
	}

	results, err := e.Search(context.Background(), "refresh")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 || results[0].QualifiedName != "RenderSettings" {
		t.Fatalf("summary text not searched: %+v", results)
	}
	if results[0].Snippet != "Handles JWT refresh on the settings screen." {
		t.Fatalf("snippet should carry the summary: %q", results[0].Snippet)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	e := setupEngine(t)
	results, err := e.Search(context.Background(), "   ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if results != nil {
		t.Fatalf("empty query returned results: %v", results)
	}
}

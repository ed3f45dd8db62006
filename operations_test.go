package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// Facade methods validate their inputs locally; a missing ID never reaches
// the network.
func TestFacadeInputValidation(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	defer server.Close()

	client := newTestClient(server)
	ctx := context.Background()

	checks := []*Envelope{
		client.GetArticle(ctx, ""),
		client.UpdateArticle(ctx, "", ArticleInput{Title: "t"}),
		client.DeleteArticle(ctx, ""),
		client.GetAuthor(ctx, ""),
		client.Ask(ctx, AskRequest{}),
		client.Summarize(ctx, SummarizeRequest{}),
	}
	for i, env := range checks {
		if env.Success {
			t.Errorf("Check %d: expected a validation failure", i)
		}
		if env.Kind() != KindValidation {
			t.Errorf("Check %d: expected kind %q, got %q", i, KindValidation, env.Kind())
		}
	}
	if got := atomic.LoadInt64(&calls); got != 0 {
		t.Errorf("Local validation failures must not hit the network, got %d calls", got)
	}
}

func TestFacadeEndpointsAndMethods(t *testing.T) {
	type seen struct {
		method string
		path   string
	}
	var last atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.Store(seen{method: r.Method, path: r.URL.Path})
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true,"data":{},"timestamp":"2024-01-01T00:00:00.000Z"}`))
	}))
	defer server.Close()

	client := newTestClient(server, WithoutCache())
	ctx := context.Background()

	tests := []struct {
		name string
		call func()
		want seen
	}{
		{"login", func() { client.Login(ctx, LoginRequest{}) }, seen{"POST", "/auth/login"}},
		{"register", func() { client.Register(ctx, RegisterRequest{}) }, seen{"POST", "/auth/register"}},
		{"logout", func() { client.Logout(ctx) }, seen{"POST", "/auth/logout"}},
		{"get article", func() { client.GetArticle(ctx, "a1") }, seen{"GET", "/articles/a1"}},
		{"create article", func() { client.CreateArticle(ctx, ArticleInput{}) }, seen{"POST", "/articles"}},
		{"update article", func() { client.UpdateArticle(ctx, "a1", ArticleInput{}) }, seen{"PUT", "/articles/a1"}},
		{"delete article", func() { client.DeleteArticle(ctx, "a1") }, seen{"DELETE", "/articles/a1"}},
		{"list authors", func() { client.ListAuthors(ctx) }, seen{"GET", "/authors"}},
		{"get author", func() { client.GetAuthor(ctx, "p1") }, seen{"GET", "/authors/p1"}},
		{"list categories", func() { client.ListCategories(ctx) }, seen{"GET", "/categories"}},
		{"list gallery", func() { client.ListGallery(ctx, GalleryListOptions{}) }, seen{"GET", "/gallery"}},
		{"ask", func() { client.Ask(ctx, AskRequest{Question: "q"}) }, seen{"POST", "/ai/ask"}},
		{"summarize", func() { client.Summarize(ctx, SummarizeRequest{ArticleID: "a1"}) }, seen{"POST", "/ai/summarize"}},
		{"health", func() { client.Health(ctx) }, seen{"GET", "/health"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.call()
			got := last.Load().(seen)
			if got != tt.want {
				t.Errorf("Expected %s %s, got %s %s", tt.want.method, tt.want.path, got.method, got.path)
			}
		})
	}
}

func TestListArticlesQueryEncoding(t *testing.T) {
	var query atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query().Encode())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(envelopeBody))
	}))
	defer server.Close()

	client := newTestClient(server)
	client.ListArticles(context.Background(), ArticleListOptions{
		Page:   2,
		Limit:  10,
		Status: StatusPublished,
		Search: "solar",
	})

	got := query.Load().(string)
	want := "limit=10&page=2&search=solar&status=PUBLISHED"
	if got != want {
		t.Errorf("Expected query %q, got %q", want, got)
	}
}

func TestNormalizeWindow(t *testing.T) {
	if page, limit := normalizeWindow(0, 0); page != 1 || limit != 10 {
		t.Errorf("Zero window should default to page 1 limit 10, got %d/%d", page, limit)
	}
	if page, limit := normalizeWindow(3, 25); page != 3 || limit != 25 {
		t.Errorf("Explicit window must pass through, got %d/%d", page, limit)
	}
}

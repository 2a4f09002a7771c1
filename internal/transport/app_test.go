package transport

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"qpinta/internal/backend"
	"qpinta/internal/backend/backendtest"
	"qpinta/internal/middleware"
	"qpinta/internal/repository"
	"qpinta/internal/session"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	adminEmail    = "admin@qpinta.test"
	adminPassword = "correct horse"
)

// testApp is the web frontend wired against a fake backend, driven through
// a cookie-keeping client that does not follow redirects.
type testApp struct {
	backend *backendtest.Server
	server  *httptest.Server
	client  *http.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	fake := backendtest.New(t)
	fake.AddUser(adminEmail, adminPassword)

	logger := zap.NewNop()
	client := backend.New(fake.Config(), logger)
	t.Cleanup(func() { client.Close() })

	renderer, err := NewRenderer(fake.Config().ImageBaseURL, logger)
	if err != nil {
		t.Fatalf("failed to parse templates: %v", err)
	}

	products := repository.NewProductRepository(client)
	categories := repository.NewCategoryRepository(client)

	router := chi.NewRouter()
	router.Use(middleware.ClientIdentity(session.NewClientIDs("test-secret", false), session.NewMemoryProvider(), logger))
	NewStorefrontHandler(products, categories, client, renderer, logger).RegisterRoutes(router)
	auth := NewAuthHandler(client, renderer, logger)
	auth.RegisterRoutes(router, nil)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin("/admin/login", logger))
		auth.RegisterGatedRoutes(r)
		NewAdminHandler(products, categories, client, renderer, logger).RegisterRoutes(r)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, _ := cookiejar.New(nil)
	return &testApp{
		backend: fake,
		server:  server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (a *testApp) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	req.Header.Set("Accept", "text/html")
	resp, err := a.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	return a.do(t, req)
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(t, req)
}

func (a *testApp) postMultipart(t *testing.T, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, a.server.URL+path, body)
	req.Header.Set("Content-Type", contentType)
	return a.do(t, req)
}

// login signs the client in and clears the backend request log.
func (a *testApp) login(t *testing.T) {
	t.Helper()
	resp := a.postForm(t, "/admin/login", url.Values{"email": {adminEmail}, "password": {adminPassword}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login: expected 303, got %d", resp.StatusCode)
	}
	a.backend.Reset()
}

func document(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("failed to parse page: %v", err)
	}
	return doc
}

// ids returns the data-id attributes of every element matching selector.
func ids(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.AttrOr("data-id", ""))
	})
	return out
}

func text(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

// Package backendtest runs an in-memory stand-in for the hosted backend:
// enough of PostgREST, object storage and password auth for the web
// frontend's tests. Every request is recorded in arrival order.
package backendtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"qpinta/internal/config"
	"qpinta/internal/domain"
)

const (
	AnonKey = "anon-key"
	Bucket  = "images"
)

// Request is a recorded backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type failure struct {
	method string
	prefix string
	status int
}

type user struct {
	password string
	id       string
}

// Server is the fake backend.
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	categories     []domain.Category
	products       []domain.Product
	objects        map[string][]byte
	users          map[string]user
	nextCategoryID int64
	nextProductID  int64
	requests       []Request
	failures       []failure
	emptyEcho      bool
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		objects:        make(map[string][]byte),
		users:          make(map[string]user),
		nextCategoryID: 1,
		nextProductID:  1,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Config returns backend settings pointing at the fake.
func (s *Server) Config() config.BackendConfig {
	return config.BackendConfig{
		URL:           s.URL,
		AnonKey:       AnonKey,
		StorageBucket: Bucket,
		ImageBaseURL:  s.URL + "/storage/v1/object/public/" + Bucket + "/",
	}
}

// SeedCategory inserts a category directly.
func (s *Server) SeedCategory(name string) domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertCategory(name)
}

// SeedProduct inserts a product directly.
func (s *Server) SeedProduct(p domain.NewProduct) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertProduct(p)
}

// SeedObject stores an object directly.
func (s *Server) SeedObject(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = data
}

// AddUser registers admin credentials for password sign-in.
func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = user{password: password, id: fmt.Sprintf("user-%d", len(s.users)+1)}
}

// Fail makes every request with method whose path starts with prefix answer
// with status until Reset is called.
func (s *Server) Fail(method, prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, prefix: prefix, status: status})
}

// EchoEmpty makes inserts succeed but echo an empty row set.
func (s *Server) EchoEmpty(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emptyEcho = on
}

// Reset clears injected failures and the request log.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = nil
	s.requests = nil
	s.emptyEcho = false
}

// Requests returns the recorded calls in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many recorded calls match method and path prefix.
func (s *Server) Count(method, prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

// Categories returns the stored categories.
func (s *Server) Categories() []domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Category(nil), s.categories...)
}

// Products returns the stored products.
func (s *Server) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Product(nil), s.products...)
}

// Object returns a stored object.
func (s *Server) Object(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[name]
	return data, ok
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})

	for _, f := range s.failures {
		if f.method == r.Method && strings.HasPrefix(r.URL.Path, f.prefix) {
			writeJSON(w, f.status, map[string]string{"message": "injected failure"})
			return
		}
	}

	if r.Header.Get("apikey") != AnonKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "No API key found in request"})
		return
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/rest/v1/"):
		s.serveTable(w, r, strings.TrimPrefix(r.URL.Path, "/rest/v1/"), body)
	case strings.HasPrefix(r.URL.Path, "/storage/v1/object/"+Bucket+"/"):
		name, _ := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/storage/v1/object/"+Bucket+"/"))
		s.serveObject(w, r, name, body)
	case r.URL.Path == "/auth/v1/token":
		s.serveToken(w, r, body)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func (s *Server) serveTable(w http.ResponseWriter, r *http.Request, table string, body []byte) {
	filters, err := parseFilters(table, r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	switch table {
	case "categories":
		s.serveCategories(w, r, filters, body)
	case "products":
		s.serveProducts(w, r, filters, body)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "relation does not exist"})
	}
}

func (s *Server) serveCategories(w http.ResponseWriter, r *http.Request, filters map[string]int64, body []byte) {
	switch r.Method {
	case http.MethodGet:
		rows := []domain.Category{}
		for _, c := range s.categories {
			if id, ok := filters["id"]; ok && c.ID != id {
				continue
			}
			rows = append(rows, c)
		}
		writeJSON(w, http.StatusOK, rows)
	case http.MethodPost:
		var in struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(body, &in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
			return
		}
		row := s.insertCategory(in.Name)
		s.echo(w, r, row)
	case http.MethodPatch:
		var in struct {
			Name *string `json:"name"`
		}
		if err := json.Unmarshal(body, &in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
			return
		}
		for i := range s.categories {
			if id, ok := filters["id"]; ok && s.categories[i].ID != id {
				continue
			}
			if in.Name != nil {
				s.categories[i].Name = *in.Name
			}
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		kept := s.categories[:0]
		for _, c := range s.categories {
			if id, ok := filters["id"]; ok && c.ID != id {
				kept = append(kept, c)
			}
		}
		s.categories = kept
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) serveProducts(w http.ResponseWriter, r *http.Request, filters map[string]int64, body []byte) {
	switch r.Method {
	case http.MethodGet:
		selectClause := r.URL.Query().Get("select")
		rows := []interface{}{}
		for _, p := range s.products {
			if !matchProduct(p, filters) {
				continue
			}
			switch {
			case selectClause == "id":
				rows = append(rows, map[string]int64{"id": p.ID})
			case strings.Contains(selectClause, "categories(name)"):
				detail := domain.ProductDetail{Product: p}
				if p.CategoryID != nil {
					for _, c := range s.categories {
						if c.ID == *p.CategoryID {
							detail.Category = &domain.CategoryName{Name: c.Name}
						}
					}
				}
				rows = append(rows, detail)
			default:
				rows = append(rows, p)
			}
		}
		writeJSON(w, http.StatusOK, rows)
	case http.MethodPost:
		var in domain.NewProduct
		if err := json.Unmarshal(body, &in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
			return
		}
		row := s.insertProduct(in)
		s.echo(w, r, row)
	case http.MethodPatch:
		var patch domain.ProductPatch
		if err := json.Unmarshal(body, &patch); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
			return
		}
		for i := range s.products {
			if matchProduct(s.products[i], filters) {
				s.products[i] = patch.Apply(s.products[i])
			}
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		kept := s.products[:0]
		for _, p := range s.products {
			if !matchProduct(p, filters) {
				kept = append(kept, p)
			}
		}
		s.products = kept
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) serveObject(w http.ResponseWriter, r *http.Request, name string, body []byte) {
	switch r.Method {
	case http.MethodPost:
		if _, exists := s.objects[name]; exists {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "The resource already exists"})
			return
		}
		s.objects[name] = body
		writeJSON(w, http.StatusOK, map[string]string{"Key": Bucket + "/" + name})
	case http.MethodDelete:
		if _, exists := s.objects[name]; !exists {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Object not found"})
			return
		}
		delete(s.objects, name)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully deleted"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) serveToken(w http.ResponseWriter, r *http.Request, body []byte) {
	if r.Method != http.MethodPost || r.URL.Query().Get("grant_type") != "password" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.Unmarshal(body, &in)

	u, ok := s.users[in.Email]
	if !ok || u.password != in.Password {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid login credentials",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  "access-" + u.id,
		"refresh_token": "refresh-" + u.id,
		"token_type":    "bearer",
		"user":          map[string]string{"id": u.id, "email": in.Email},
	})
}

func (s *Server) echo(w http.ResponseWriter, r *http.Request, row interface{}) {
	if r.Header.Get("Prefer") != "return=representation" {
		w.WriteHeader(http.StatusCreated)
		return
	}
	if s.emptyEcho {
		writeJSON(w, http.StatusCreated, []interface{}{})
		return
	}
	writeJSON(w, http.StatusCreated, []interface{}{row})
}

func (s *Server) insertCategory(name string) domain.Category {
	c := domain.Category{ID: s.nextCategoryID, Name: name}
	s.nextCategoryID++
	s.categories = append(s.categories, c)
	return c
}

func (s *Server) insertProduct(in domain.NewProduct) domain.Product {
	p := domain.Product{
		ID:         s.nextProductID,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
		Price:      in.Price,
		Size:       in.Size,
		CategoryID: in.CategoryID,
		Image:      in.Image,
	}
	s.nextProductID++
	s.products = append(s.products, p)
	return p
}

var columns = map[string]map[string]bool{
	"categories": {"id": true},
	"products":   {"id": true, "categoryId": true},
}

// parseFilters reads eq filters, rejecting unknown columns the way PostgREST
// does.
func parseFilters(table string, query url.Values) (map[string]int64, error) {
	filters := make(map[string]int64)
	for key, values := range query {
		if key == "select" {
			continue
		}
		if !columns[table][key] {
			return nil, fmt.Errorf("column %s.%s does not exist", table, key)
		}
		raw := strings.TrimPrefix(values[0], "eq.")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid input syntax for type bigint: %q", raw)
		}
		filters[key] = id
	}
	return filters, nil
}

func matchProduct(p domain.Product, filters map[string]int64) bool {
	if id, ok := filters["id"]; ok && p.ID != id {
		return false
	}
	if cid, ok := filters["categoryId"]; ok && (p.CategoryID == nil || *p.CategoryID != cid) {
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

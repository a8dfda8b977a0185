// Command sample serves a small users API whose every response is an
// envelope.
//
// Run:
//
//	go run ./cmd/sample
//	go run ./cmd/sample -config envelope.yaml
//	ENVELOPE_WITHOUT_WRAPPING=true go run ./cmd/sample
//
// Then explore:
//
//	GET    http://localhost:8080/v1/health            raw handler
//	GET    http://localhost:8080/v1/users?page=2      paginated list ("entities")
//	POST   http://localhost:8080/v1/users             create ("Stored", 201)
//	GET    http://localhost:8080/v1/users/{id}        show ("entity")
//	PUT    http://localhost:8080/v1/users/{id}        update ("entity")
//	DELETE http://localhost:8080/v1/users/{id}        delete (204)
//	GET    http://localhost:8080/v1/users/{id}/roles  custom data key ("roles")
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bjaus/envelope"
)

func main() {
	configFlag := flag.String("config", "", "YAML envelope config file")
	addrFlag := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	b, err := envelope.New(cfg, envelope.WithLogger(logger), envelope.WithRequestIDMeta())
	if err != nil {
		slog.Error("builder", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("starting server", "addr", *addrFlag, "plural", cfg.PluralDataKey, "singular", cfg.SingularDataKey)

	if err := newRouter(b, logger).ListenAndServe(ctx, *addrFlag); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
	}

	slog.Info("server stopped")
}

func loadConfig(path string) (envelope.Config, error) {
	cfg := envelope.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = envelope.LoadConfigFile(path); err != nil {
			return envelope.Config{}, err
		}
	}
	return cfg.FromEnv()
}

func newRouter(b *envelope.Builder, logger *slog.Logger) *envelope.Router {
	r := envelope.NewRouter(b)

	r.Use(envelope.RequestID())
	r.Use(envelope.Logger(logger))
	r.Use(envelope.Recovery(b))
	r.Use(envelope.RateLimit(b, envelope.RateLimitConfig{Rate: 20, Burst: 40}))

	v1 := r.Group("/v1", envelope.WithGroupOptions(envelope.WithMeta(map[string]any{"version": "v1"})))

	envelope.Raw(v1, http.MethodGet, "/health", func(w http.ResponseWriter, req *http.Request) {
		b.Respond(w, req, map[string]any{"status": "ok", "time": time.Now().UTC()}, envelope.WithOperation(envelope.OpShow))
	})

	envelope.Get(v1, "/users", handleListUsers, envelope.WithPaginated())
	envelope.Post(v1, "/users", handleCreateUser)
	envelope.Get(v1, "/users/{id}", handleGetUser)
	envelope.Put(v1, "/users/{id}", handleUpdateUser, envelope.WithMessage("Updated"))
	envelope.Delete(v1, "/users/{id}", handleDeleteUser)
	envelope.Get(v1, "/users/{id}/roles", handleUserRoles, envelope.WithKey("roles"))

	return r
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

type ListUsersReq struct {
	Role    string `query:"role"`
	Page    int    `query:"page" default:"1"`
	PerPage int    `query:"per_page" default:"10"`
}

func handleListUsers(_ context.Context, req *ListUsersReq) (*envelope.Page[User], error) {
	users := store.list(req.Role)

	page := max(req.Page, 1)
	perPage := min(max(req.PerPage, 1), 100)

	lo := min((page-1)*perPage, len(users))
	hi := min(lo+perPage, len(users))

	path := "/v1/users"
	if req.Role != "" {
		path += "?role=" + url.QueryEscape(req.Role)
	}
	return envelope.NewPage(users[lo:hi], len(users), page, perPage, path), nil
}

type CreateUserReq struct {
	Body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
}

func (r *CreateUserReq) Validate() error {
	var errs envelope.ValidationErrors
	if strings.TrimSpace(r.Body.Name) == "" {
		errs.Add("name", "is required")
	}
	if strings.TrimSpace(r.Body.Email) == "" {
		errs.Add("email", "is required")
	} else if !strings.Contains(r.Body.Email, "@") {
		errs.Add("email", "must contain @")
	}
	return errs.Err()
}

func handleCreateUser(_ context.Context, req *CreateUserReq) (*User, error) {
	role := req.Body.Role
	if role == "" {
		role = "member"
	}
	return store.create(req.Body.Name, req.Body.Email, role), nil
}

type UserByIDReq struct {
	ID string `path:"id"`
}

func handleGetUser(_ context.Context, req *UserByIDReq) (*User, error) {
	u, ok := store.get(req.ID)
	if !ok {
		return nil, envelope.Errorf(http.StatusNotFound, "user %s not found", req.ID)
	}
	return u, nil
}

type UpdateUserReq struct {
	ID   string `path:"id"`
	Body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
}

func handleUpdateUser(_ context.Context, req *UpdateUserReq) (*User, error) {
	u, ok := store.update(req.ID, req.Body.Name, req.Body.Email, req.Body.Role)
	if !ok {
		return nil, envelope.Errorf(http.StatusNotFound, "user %s not found", req.ID)
	}
	return u, nil
}

func handleDeleteUser(_ context.Context, req *UserByIDReq) (*envelope.Void, error) {
	if !store.delete(req.ID) {
		return nil, envelope.Errorf(http.StatusNotFound, "user %s not found", req.ID)
	}
	return nil, nil
}

type Roles []string

func handleUserRoles(_ context.Context, req *UserByIDReq) (*Roles, error) {
	u, ok := store.get(req.ID)
	if !ok {
		return nil, envelope.Errorf(http.StatusNotFound, "user %s not found", req.ID)
	}
	roles := Roles{u.Role}
	if u.Role == "admin" {
		roles = append(roles, "member")
	}
	return &roles, nil
}

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

var store = &userStore{
	users: map[string]*User{
		"1": {ID: "1", Name: "Alice", Email: "alice@example.com", Role: "admin", CreatedAt: time.Now()},
		"2": {ID: "2", Name: "Bob", Email: "bob@example.com", Role: "member", CreatedAt: time.Now()},
	},
	nextID: 3,
}

type userStore struct {
	mu     sync.RWMutex
	users  map[string]*User
	nextID int
}

// User is the core domain entity.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *userStore) list(role string) []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b User) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (s *userStore) get(id string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

func (s *userStore) create(name, email, role string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{
		ID:        fmt.Sprintf("%d", s.nextID),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.users[u.ID] = u
	cp := *u
	return &cp
}

func (s *userStore) update(id, name, email, role string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	if name != "" {
		u.Name = name
	}
	if email != "" {
		u.Email = email
	}
	if role != "" {
		u.Role = role
	}
	cp := *u
	return &cp, true
}

func (s *userStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	return true
}

package pterodactyl

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakePanel is a minimal application API served over httptest.
type fakePanel struct {
	t       *testing.T
	token   string
	perPage int

	mu          sync.Mutex
	users       []User
	nodes       []Node
	servers     []server
	allocations map[uint32][]allocation
	createCode  int
	createBody  string
	created     []createServer
	requests    []string
}

func newFakePanel(t *testing.T) (*fakePanel, *httptest.Server) {
	t.Helper()
	p := &fakePanel{
		t:           t,
		token:       "secret",
		perPage:     2,
		allocations: make(map[uint32][]allocation),
		createCode:  http.StatusOK,
	}
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)
	return p, srv
}

func (p *fakePanel) requested() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *fakePanel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, r.Method+" "+r.URL.RequestURI())

	if r.Header.Get("Authorization") != "Bearer "+p.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, applicationEndpoint+"/")
	switch {
	case r.Method == http.MethodGet && path == "users":
		writePage(w, r, p.perPage, p.users)
	case r.Method == http.MethodGet && path == "nodes":
		writePage(w, r, p.perPage, p.nodes)
	case r.Method == http.MethodGet && path == "servers":
		writePage(w, r, p.perPage, p.servers)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "nodes/") && strings.HasSuffix(path, "/allocations"):
		id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(path, "nodes/"), "/allocations"))
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writePage(w, r, p.perPage, p.allocations[uint32(id)])
	case r.Method == http.MethodPost && path == "servers":
		var req object[createServer]
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			p.t.Errorf("failed to decode create request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		p.created = append(p.created, req.Attributes)
		if p.createCode != http.StatusOK {
			w.WriteHeader(p.createCode)
			w.Write([]byte(`{"errors":[{"code":"ValidationException","detail":"allocation taken"}]}`))
			return
		}
		if p.createBody != "" {
			w.Write([]byte(p.createBody))
			return
		}
		a := req.Attributes
		json.NewEncoder(w).Encode(object[server]{
			Object: "server",
			Attributes: server{
				ID:            uint32(len(p.created)),
				Identifier:    "abcd1234",
				Name:          a.Name,
				User:          a.User,
				Allocation:    a.Allocation.Default,
				Egg:           a.Egg,
				Limits:        a.Limits,
				FeatureLimits: a.FeatureLimits,
				Container: serverContainer{
					StartupCommand: a.Startup,
					Image:          a.DockerImage,
					Environment:    a.Environment,
				},
			},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writePage[T any](w http.ResponseWriter, r *http.Request, perPage int, items []T) {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		page, _ = strconv.Atoi(v)
	}
	total := (len(items) + perPage - 1) / perPage
	if total == 0 {
		total = 1
	}

	var resp list[T]
	resp.Object = "list"
	start := (page - 1) * perPage
	for i := start; i < start+perPage && i < len(items); i++ {
		resp.Data = append(resp.Data, object[T]{Attributes: items[i]})
	}
	resp.Meta.Pagination = pagination{
		Total:       len(items),
		Count:       len(resp.Data),
		PerPage:     perPage,
		CurrentPage: page,
		TotalPages:  total,
	}
	json.NewEncoder(w).Encode(resp)
}

package client_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyenergysolutions/freepbx-go/internal/client"
	"github.com/hyenergysolutions/freepbx-go/internal/constants"
	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

// fakePBX serves the token, GraphQL and REST endpoints of a FreePBX
// installation. Issued tokens are numbered tok-1, tok-2, ...
type fakePBX struct {
	*httptest.Server

	tokenCalls   atomic.Int32
	graphqlCalls atomic.Int32
	restCalls    atomic.Int32

	mu          sync.Mutex
	tokenStatus int
	tokenBody   string
	graphql     http.HandlerFunc
	rest        http.HandlerFunc
	queries     []string
	bearers     []string
}

func newFakePBX(t *testing.T) *fakePBX {
	t.Helper()

	pbx := &fakePBX{}
	pbx.Server = httptest.NewServer(http.HandlerFunc(pbx.serve))
	t.Cleanup(pbx.Close)

	return pbx
}

func (p *fakePBX) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == constants.TokenPath:
		p.serveToken(w)
	case r.URL.Path == constants.GraphQLPath:
		p.graphqlCalls.Add(1)

		var body struct {
			Query string `json:"query"`
		}

		_ = json.NewDecoder(r.Body).Decode(&body)

		p.mu.Lock()
		p.queries = append(p.queries, body.Query)
		p.bearers = append(p.bearers, r.Header.Get("Authorization"))
		handler := p.graphql
		p.mu.Unlock()

		if handler == nil {
			http.NotFound(w, r)

			return
		}

		handler(w, r)
	case strings.HasPrefix(r.URL.Path, constants.RESTPathPrefix):
		p.restCalls.Add(1)

		p.mu.Lock()
		p.bearers = append(p.bearers, r.Header.Get("Authorization"))
		handler := p.rest
		p.mu.Unlock()

		if handler == nil {
			http.NotFound(w, r)

			return
		}

		handler(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (p *fakePBX) serveToken(w http.ResponseWriter) {
	n := p.tokenCalls.Add(1)

	p.mu.Lock()
	status, body := p.tokenStatus, p.tokenBody
	p.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)

		return
	}

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": fmt.Sprintf("tok-%d", n),
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (p *fakePBX) failToken(status int, body string) {
	p.mu.Lock()
	p.tokenStatus, p.tokenBody = status, body
	p.mu.Unlock()
}

func (p *fakePBX) onGraphQL(handler http.HandlerFunc) {
	p.mu.Lock()
	p.graphql = handler
	p.mu.Unlock()
}

func (p *fakePBX) onREST(handler http.HandlerFunc) {
	p.mu.Lock()
	p.rest = handler
	p.mu.Unlock()
}

func (p *fakePBX) lastQuery() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queries) == 0 {
		return ""
	}

	return p.queries[len(p.queries)-1]
}

func (p *fakePBX) authorizations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.bearers...)
}

func respondJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func respondStatus(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

type testClient struct {
	*client.Client

	cache *freepbx.MemoryCache
}

func newTestClient(t *testing.T, pbx *fakePBX, mutate ...func(*freepbx.Config)) *testClient {
	t.Helper()

	cache := freepbx.NewMemoryCache(10)
	cfg := &freepbx.Config{
		BaseURL:      pbx.URL + "/",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RetryWait:    time.Millisecond,
		Cache:        cache,
	}

	for _, fn := range mutate {
		fn(cfg)
	}

	c, err := client.New(cfg)
	require.NoError(t, err)

	return &testClient{Client: c, cache: cache}
}

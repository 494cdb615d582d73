package api

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finops-claw-gang/eventcheck-go/internal/observability"
	"github.com/finops-claw-gang/eventcheck-go/internal/ratelimit"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/querier"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/workflows"
)

const testAudience = "eventcheck"

// fakeIssuer serves OIDC discovery and a JWKS for one RSA key.
type fakeIssuer struct {
	url string
	key *rsa.PrivateKey
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	f := &fakeIssuer{key: key}

	jwks := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
		{Key: &key.PublicKey, KeyID: "eventcheck-kid", Algorithm: "RS256", Use: "sig"},
	}}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"issuer": f.url, "jwks_uri": f.url + "/jwks"})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, jwks)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	f.url = ts.URL
	return f
}

// token signs claims with key, defaulting iss, aud and a one-hour validity.
func (f *fakeIssuer) token(t *testing.T, key *rsa.PrivateKey, claims map[string]any) string {
	t.Helper()
	now := time.Now()
	full := map[string]any{
		"iss": f.url,
		"aud": testAudience,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	maps.Copy(full, claims)

	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: key},
		(&jose.SignerOptions{}).WithHeader("kid", "eventcheck-kid"),
	)
	require.NoError(t, err)
	raw, err := jwt.Signed(sig).Claims(full).Serialize()
	require.NoError(t, err)
	return raw
}

// stopRecorder captures stop requests; other querier calls are not expected.
type stopRecorder struct {
	querier.AuditQuerier
	stops []workflows.StopRequest
}

func (s *stopRecorder) StopAudit(_ context.Context, _ string, req workflows.StopRequest) (string, error) {
	s.stops = append(s.stops, req)
	return "stopping", nil
}

func newAuthServer(t *testing.T, f *fakeIssuer, opts Options) *httptest.Server {
	t.Helper()
	opts.OIDC = OIDCConfig{IssuerURL: f.url, Audience: testAudience, Enabled: true}
	srv, err := New(t.Context(), opts)
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url, bearer, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestOIDCAuth_CallerIdentity(t *testing.T) {
	f := newFakeIssuer(t)
	provider, err := oidc.NewProvider(t.Context(), f.url)
	require.NoError(t, err)
	handler := oidcAuth(provider, testAudience)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"caller": UserFromContext(r.Context())})
	}))

	tests := []struct {
		name   string
		claims map[string]any
		want   string
	}{
		{"subject", map[string]any{"sub": "user-123"}, "user-123"},
		{"email when subject is absent", map[string]any{"email": "dev@example.com"}, "dev@example.com"},
		{"subject wins over email", map[string]any{"sub": "user-123", "email": "dev@example.com"}, "user-123"},
		{"anonymous token", map[string]any{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/compare", nil)
			req.Header.Set("Authorization", "Bearer "+f.token(t, f.key, tt.claims))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body["caller"])
		})
	}
}

func TestOIDCAuth_Rejects(t *testing.T) {
	f := newFakeIssuer(t)
	ts := newAuthServer(t, f, Options{})

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	valid := map[string]any{"sub": "user-123"}

	tests := []struct {
		name    string
		header  string
		wantErr string
	}{
		{"missing header", "", "missing Authorization header"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "invalid Authorization header format"},
		{"bearer without token", "Bearer", "invalid Authorization header format"},
		{"expired", "Bearer " + f.token(t, f.key, map[string]any{
			"sub": "user-123",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}), "invalid token"},
		{"other audience", "Bearer " + f.token(t, f.key, map[string]any{"sub": "user-123", "aud": "finance"}), "invalid token"},
		{"foreign signing key", "Bearer " + f.token(t, otherKey, valid), "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, http.MethodGet, ts.URL+"/api/v1/example", tt.header, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			var body errorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Contains(t, body.Error, tt.wantErr)
		})
	}
}

func TestOIDCAuth_PublicPathsSkipAuth(t *testing.T) {
	f := newFakeIssuer(t)
	ts := newAuthServer(t, f, Options{Metrics: observability.NewHTTPMetrics()})

	for path := range publicPaths {
		resp := doRequest(t, http.MethodGet, ts.URL+path, "", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/v1/ui", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStopAudit_DefaultsToCaller(t *testing.T) {
	f := newFakeIssuer(t)
	q := &stopRecorder{}
	ts := newAuthServer(t, f, Options{Querier: q})
	bearer := "Bearer " + f.token(t, f.key, map[string]any{"email": "oncall@example.com"})

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/v1/audits/wf-1/stop", bearer, `{"reason":"bad fixture"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doRequest(t, http.MethodPost, ts.URL+"/api/v1/audits/wf-1/stop", bearer, `{"by":"release-bot"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, q.stops, 2)
	assert.Equal(t, workflows.StopRequest{By: "oncall@example.com", Reason: "bad fixture"}, q.stops[0])
	assert.Equal(t, "release-bot", q.stops[1].By)
}

func TestRateLimit_BucketPerAuthenticatedCaller(t *testing.T) {
	f := newFakeIssuer(t)
	ts := newAuthServer(t, f, Options{Limiter: ratelimit.NewClientLimiter(0.001, 1)})
	alice := "Bearer " + f.token(t, f.key, map[string]any{"sub": "alice"})
	bob := "Bearer " + f.token(t, f.key, map[string]any{"sub": "bob"})

	// All requests come from the same address; only the caller differs.
	assert.Equal(t, http.StatusOK, doRequest(t, http.MethodGet, ts.URL+"/api/v1/example", alice, "").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(t, http.MethodGet, ts.URL+"/api/v1/example", alice, "").StatusCode)
	assert.Equal(t, http.StatusOK, doRequest(t, http.MethodGet, ts.URL+"/api/v1/example", bob, "").StatusCode)
}

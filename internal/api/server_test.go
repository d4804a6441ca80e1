package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rubric/internal/rubric"
	"github.com/roach88/rubric/internal/store"
	rtestutil "github.com/roach88/rubric/internal/testutil"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	clock := rtestutil.NewDeterministicClock()
	ids := rtestutil.NewSequentialIDs("rubric")
	st, err := store.Open(":memory:",
		store.WithClock(clock.Now),
		store.WithIDGenerator(func() (string, error) { return ids.Generate(), nil }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func validRequest(title string) rubric.PutRequest {
	return rubric.PutRequest{
		Mode:        rubric.ModeCreate,
		RubricTitle: title,
		Headings:    []rubric.Heading{{Order: 1, Text: "Intro"}},
		Prompts: []rubric.Prompt{{
			Order:         2,
			PromptType:    rubric.PromptDropdown,
			PromptText:    "Verdict",
			PromptOptions: []rubric.DropdownOption{{Key: "yes", Text: "Yes", Value: "yes"}},
		}},
	}
}

func do(t *testing.T, h http.Handler, method, target, org string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if org != "" {
		req.Header.Set(HeaderOrgID, org)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestServer_Health(t *testing.T) {
	srv := NewServer(newTestStore(t))
	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_RequiresOrg(t *testing.T) {
	srv := NewServer(newTestStore(t))
	rec := do(t, srv.Handler(), http.MethodGet, "/rubrics", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeMissingOrg, decodeEnvelope(t, rec).Code)
}

func TestServer_PutGetList(t *testing.T) {
	srv := NewServer(newTestStore(t))
	h := srv.Handler()

	rec := do(t, h, http.MethodPut, "/rubric", "acme", validRequest("Essay review"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var put rubric.PutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &put))
	assert.Equal(t, "rubric-0001", put.RubricID)

	rec = do(t, h, http.MethodGet, "/rubric?rubricID=rubric-0001", "acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got rubric.Rubric
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Essay review", got.RubricTitle)
	assert.Equal(t, 2, got.BlockCount())

	rec = do(t, h, http.MethodGet, "/rubrics", "acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []rubric.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].BlockCount)

	rec = do(t, h, http.MethodGet, "/rubric?rubricID=rubric-0001", "other-org", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeEnvelope(t, rec).Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().saves.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().requests.WithLabelValues("/rubric", "GET", "404")))
}

func TestServer_OrgDefault(t *testing.T) {
	h := NewServer(newTestStore(t)).Handler()

	rec := do(t, h, http.MethodGet, "/rubric/orgdefault", "acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orgID":"acme","hasDefault":false}`, rec.Body.String())

	req := validRequest("Acme University")
	on := true
	req.OrgDefault = &on
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/rubric", "acme", req).Code)

	rec = do(t, h, http.MethodGet, "/rubric/orgdefault", "acme", nil)
	assert.JSONEq(t, `{"orgID":"acme","hasDefault":true}`, rec.Body.String())
}

func TestServer_PutErrors(t *testing.T) {
	h := NewServer(newTestStore(t)).Handler()

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{
			name:   "not json",
			body:   "nope",
			status: http.StatusBadRequest,
			code:   CodeBadRequest,
		},
		{
			name: "short title",
			body: func() rubric.PutRequest {
				r := validRequest("ab")
				return r
			}(),
			status: http.StatusUnprocessableEntity,
			code:   CodeInvalid,
		},
		{
			name: "broken orders",
			body: func() rubric.PutRequest {
				r := validRequest("Essay review")
				r.Prompts[0].Order = 5
				return r
			}(),
			status: http.StatusBadRequest,
			code:   CodeMalformed,
		},
		{
			name: "edit with bad id",
			body: func() rubric.PutRequest {
				r := validRequest("Essay review")
				r.Mode = rubric.ModeEdit
				r.RubricID = "../etc"
				return r
			}(),
			status: http.StatusBadRequest,
			code:   CodeInvalidID,
		},
		{
			name: "edit missing rubric",
			body: func() rubric.PutRequest {
				r := validRequest("Essay review")
				r.Mode = rubric.ModeEdit
				r.RubricID = "rubric-9999"
				return r
			}(),
			status: http.StatusNotFound,
			code:   CodeNotFound,
		},
		{
			name: "unknown mode",
			body: func() rubric.PutRequest {
				r := validRequest("Essay review")
				r.Mode = "upsert"
				return r
			}(),
			status: http.StatusBadRequest,
			code:   CodeMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPut, "/rubric", "acme", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeEnvelope(t, rec).Code)
		})
	}
}

func TestServer_ValidationDetails(t *testing.T) {
	h := NewServer(newTestStore(t)).Handler()
	rec := do(t, h, http.MethodPut, "/rubric", "acme", validRequest("ab"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"rubricTitle"`)
	assert.Contains(t, rec.Body.String(), `"code":"E201"`)
}

func TestServer_Conflict(t *testing.T) {
	h := NewServer(newTestStore(t)).Handler()
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/rubric", "acme", validRequest("Essay review")).Code)

	edit := validRequest("Essay review v2")
	edit.Mode = rubric.ModeEdit
	edit.RubricID = "rubric-0001"
	edit.BaseUpdatedAt = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := do(t, h, http.MethodPut, "/rubric", "acme", edit)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeConflict, decodeEnvelope(t, rec).Code)
}

func TestServer_Snapshot(t *testing.T) {
	h := NewServer(newTestStore(t)).Handler()
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/rubric", "acme", validRequest("Essay review")).Code)

	rec := do(t, h, http.MethodPost, "/rubric/snapshot", "acme", SnapshotRequest{RubricID: "rubric-0001", ReviewID: "review-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snap rubric.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "review-1", snap.ReviewID)
	assert.Len(t, snap.ContentHash, 64)

	rec = do(t, h, http.MethodPost, "/rubric/snapshot", "acme", map[string]string{"rubricID": "rubric-0001"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeBadRequest, decodeEnvelope(t, rec).Code)

	rec = do(t, h, http.MethodPost, "/rubric/snapshot", "acme", SnapshotRequest{RubricID: "rubric-0404", ReviewID: "review-2"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SnapshotScopedToOrg(t *testing.T) {
	h := NewServer(newTestStore(t)).Handler()
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/rubric", "acme", validRequest("Acme rubric")).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/rubric", "globex", validRequest("Globex rubric")).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/rubric", "acme", validRequest("Acme other")).Code)

	rec := do(t, h, http.MethodPost, "/rubric/snapshot", "acme", SnapshotRequest{RubricID: "rubric-0001", ReviewID: "review-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Globex reusing the review id gets its own rubric, never Acme's.
	rec = do(t, h, http.MethodPost, "/rubric/snapshot", "globex", SnapshotRequest{RubricID: "rubric-0002", ReviewID: "review-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snap rubric.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "rubric-0002", snap.RubricID)
	assert.Equal(t, "Globex rubric", snap.Rubric.RubricTitle)

	// Globex cannot snapshot Acme's rubric.
	rec = do(t, h, http.MethodPost, "/rubric/snapshot", "globex", SnapshotRequest{RubricID: "rubric-0001", ReviewID: "review-2"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Acme reusing the review id for another rubric is a conflict.
	rec = do(t, h, http.MethodPost, "/rubric/snapshot", "acme", SnapshotRequest{RubricID: "rubric-0003", ReviewID: "review-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeConflict, decodeEnvelope(t, rec).Code)
}

func TestServer_Metrics(t *testing.T) {
	h := NewServer(newTestStore(t)).Handler()
	do(t, h, http.MethodGet, "/healthz", "", nil)

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `rubric_http_requests_total{method="GET",route="/healthz",status="200"} 1`))
}

func TestServer_Serve(t *testing.T) {
	srv := NewServer(newTestStore(t))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	tr := &http.Transport{}
	defer tr.CloseIdleConnections()
	resp, err := (&http.Client{Transport: tr}).Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

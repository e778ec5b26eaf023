package intake_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/catset/internal/config"
	"github.com/aretw0/catset/internal/intake"
	"github.com/aretw0/catset/internal/platform"
	"github.com/aretw0/catset/pkg/core"
)

func newServer(t *testing.T, opts ...platform.Option) (*httptest.Server, *platform.Runtime) {
	t.Helper()
	cfg := config.DefaultConfig
	cfg.Store.Backend = "memory"

	rt, err := platform.Open(context.Background(), &cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })

	srv := httptest.NewServer(intake.NewServer(rt, rt.Dataset.String(), "", nil).Handler())
	t.Cleanup(srv.Close)
	return srv, rt
}

func postJSON(t *testing.T, url string, body any) (*http.Response, intake.Outcome) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", strings.NewReader(string(b)))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out intake.Outcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestServer_AddEntryJSON(t *testing.T) {
	srv, rt := newServer(t)

	resp, out := postJSON(t, srv.URL+"/entries", intake.Submission{
		Code:    `if (a == 3) { return "hi"; }`,
		Comment: "guard clause",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.True(t, out.OK)
	assert.Equal(t, intake.MsgSuccess, out.Message)
	require.NotNil(t, out.Entry)
	assert.Equal(t, "if ( a == NUM_ ) { return STR_ ; }", out.Entry.Code)

	entries, err := rt.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "guard clause", entries[0].Comment)
}

func TestServer_AddEntryForm(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.PostForm(srv.URL+"/entries", url.Values{"code": {"int x = 42;"}, "comment": {"answer"}})
	require.NoError(t, err)
	defer resp.Body.Close()

	var out intake.Outcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "int x = NUM_ ;", out.Entry.Code)
}

func TestServer_AddEntryStatusCodes(t *testing.T) {
	failing := core.TaggerFunc(func(context.Context, string) ([]string, error) {
		return nil, errors.New("tagger offline")
	})
	srv, rt := newServer(t, platform.WithTagger(failing))

	tests := []struct {
		name   string
		sub    intake.Submission
		status int
		msg    string
	}{
		{"missing comment", intake.Submission{Code: "int x;"}, http.StatusBadRequest, intake.MsgMissingComment},
		{"lexer error", intake.Submission{Code: "int # x;", Comment: "c"}, http.StatusUnprocessableEntity, "Error tokenizing code: "},
		{"tagger error", intake.Submission{Code: "int x;", Comment: "c"}, http.StatusBadGateway, "Error generating CAT: tagger offline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := postJSON(t, srv.URL+"/entries", tt.sub)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.False(t, out.OK)
			assert.True(t, strings.HasPrefix(out.Message, tt.msg), out.Message)
		})
	}

	entries, err := rt.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestServer_InvalidBody(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Post(srv.URL+"/entries", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_BodyTooLarge(t *testing.T) {
	srv, rt := newServer(t)
	body := `{"code":"` + strings.Repeat("x", 2<<20) + `","comment":"big"}`
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Config.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	entries, err := rt.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestServer_ListHugeLimit(t *testing.T) {
	srv, rt := newServer(t)
	ctx := context.Background()
	for _, code := range []string{"int a;", "int b;"} {
		_, err := rt.Submit(ctx, code, "c")
		require.NoError(t, err)
	}

	resp, err := http.Get(srv.URL + "/entries?limit=9223372036854775807&offset=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Entries []core.Entry `json:"entries"`
		Limit   int          `json:"limit"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "int b ;", list.Entries[0].Code)
	assert.Equal(t, 1000, list.Limit)
}

func TestServer_ListAndStats(t *testing.T) {
	srv, rt := newServer(t)
	ctx := context.Background()
	for _, code := range []string{"int a;", "int b;", "return true;"} {
		_, err := rt.Submit(ctx, code, "c")
		require.NoError(t, err)
	}

	resp, err := http.Get(srv.URL + "/entries?limit=2&offset=1")
	require.NoError(t, err)
	var list struct {
		Entries []core.Entry `json:"entries"`
		Total   int          `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Equal(t, 3, list.Total)
	require.Len(t, list.Entries, 2)
	assert.Equal(t, "int b ;", list.Entries[0].Code)
	assert.Equal(t, "return BOOL_ ;", list.Entries[1].Code)

	resp, err = http.Get(srv.URL + "/stats?top=1")
	require.NoError(t, err)
	var stats struct {
		Entries int             `json:"entries"`
		Tokens  int             `json:"tokens"`
		TopTags []core.TagCount `json:"top_tags"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 9, stats.Tokens)
	require.Len(t, stats.TopTags, 1)
	assert.Equal(t, "SEPARATOR", stats.TopTags[0].Tag)
}

func TestServer_Form(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Contains(t, body, "datasets/customData")
	assert.Contains(t, body, "<form")

	resp, err = http.PostForm(srv.URL+"/", url.Values{"code": {""}, "comment": {"kept"}})
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Contains(t, body, intake.MsgMissingCode)
	assert.Contains(t, body, "kept")

	resp, err = http.PostForm(srv.URL+"/", url.Values{"code": {"int x;"}, "comment": {"decl"}})
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Contains(t, body, intake.MsgSuccess)
	assert.Contains(t, body, "holds 1 entries")
}

func TestServer_Health(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/require"

	"valuation-form-go/internal/model"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *CustomTemplateIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 客户端会校验产品头
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewCustomTemplateIndex(client, "custom_templates")
}

func TestBuildSearchQuery(t *testing.T) {
	q := buildSearchQuery("ORG1", "plots", "SBI", "", 20)
	raw, err := json.Marshal(q)
	require.NoError(t, err)
	body := string(raw)

	require.Contains(t, body, `"organization_id":"ORG1"`)
	require.Contains(t, body, `"bank_code":"SBI"`)
	require.NotContains(t, body, `"property_type"`)
	require.Contains(t, body, `"multi_match"`)

	raw, err = json.Marshal(buildSearchQuery("ORG1", "", "", "", 5))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "multi_match")
}

func TestSearchCustomTemplates(t *testing.T) {
	var gotPath, gotBody string
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, `{"hits":{"hits":[{"_source":{"id":"b"}},{"_source":{"id":"a"}}]}}`)
	})

	ids, err := idx.SearchCustomTemplates(context.Background(), "ORG1", "river", "SBI", "land", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, ids)
	require.Equal(t, "/custom_templates/_search", gotPath)
	require.True(t, strings.Contains(gotBody, `"river"`))
}

func TestSearchCustomTemplatesError(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
	})

	_, err := idx.SearchCustomTemplates(context.Background(), "ORG1", "", "", "", 10)
	require.Error(t, err)
}

func TestIndexAndDeleteCustomTemplate(t *testing.T) {
	var methods []string
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"result":"not_found"}`)
			return
		}
		_, _ = io.WriteString(w, `{"result":"created"}`)
	})
	ctx := context.Background()

	require.NoError(t, idx.IndexCustomTemplate(ctx, model.CustomTemplateDocument{ID: "a", OrganizationID: "ORG1"}))
	require.NoError(t, idx.DeleteCustomTemplate(ctx, "a"))
	require.Equal(t, []string{"PUT /custom_templates/_doc/a", "DELETE /custom_templates/_doc/a"}, methods)
}

package apptrust

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookverse/apptrust-rollback/internal/release"
)

func TestListVersions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/applications/bookverse-inventory/versions", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		assert.Equal(t, "created", r.URL.Query().Get("order_by"))
		assert.Equal(t, "false", r.URL.Query().Get("order_asc"))

		w.Write([]byte(`{"versions":[
			{"version":"2.0.0","tag":"latest","release_status":"trusted_release"},
			{"version":"1.9.0","tag":null,"release_status":"RELEASED"}
		]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-token", 0)
	records, err := c.ListVersions(context.Background(), "bookverse-inventory")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, release.Record{Version: "2.0.0", Tag: "latest", Status: release.StatusTrusted}, records[0])
	assert.Equal(t, release.Record{Version: "1.9.0", Tag: "", Status: release.StatusReleased}, records[1])
}

func TestGetVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/applications/app/versions/2.0.0", r.URL.Path)
		w.Write([]byte(`{"current_stage":"PROD"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", 0)
	detail, err := c.GetVersion(context.Background(), "app", "2.0.0")
	require.NoError(t, err)
	assert.Equal(t, "PROD", detail.CurrentStage)
}

func TestPatchVersion(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PATCH", r.Method)
		assert.Equal(t, "/applications/app/versions/2.0.0", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", 0)
	tag := "quarantine"
	err := c.PatchVersion(context.Background(), "app", "2.0.0", PatchRequest{
		Tag:        &tag,
		Properties: map[string][]string{"original_tag_before_quarantine": {"latest"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "quarantine", got["tag"])
	assert.Equal(t, map[string]any{"original_tag_before_quarantine": []any{"latest"}}, got["properties"])
	_, hasDelete := got["delete_properties"]
	assert.False(t, hasDelete)
}

func TestInvokeRollback(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/applications/app/versions/2.0.0/rollback", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", 0)
	err := c.InvokeRollback(context.Background(), "app", "2.0.0", "PROD")
	require.NoError(t, err)
	assert.Equal(t, "PROD", got["from_stage"])
}

func TestErrorStatusWrapsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "version not in stage", http.StatusConflict)
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", 0)
	err := c.InvokeRollback(context.Background(), "app", "2.0.0", "PROD")
	require.Error(t, err)

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusConflict, terr.StatusCode)
	assert.Equal(t, "invoke rollback", terr.Op)
	assert.Contains(t, terr.Error(), "version not in stage")
}

func TestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	c := NewClient(server.URL, "tok", 0)
	_, err := c.ListVersions(context.Background(), "app")
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Zero(t, terr.StatusCode)
}

func TestPathEscaping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/applications/team%2Fapp/versions/1.0.0+build", r.URL.EscapedPath())
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", 0)
	_, err := c.GetVersion(context.Background(), "team/app", "1.0.0+build")
	require.NoError(t, err)
}

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Collect(t *testing.T) {
	var gotToken string
	var gotReq CollectRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/scrape" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotToken = r.Header.Get("X-API-Token")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [
				{"unit_id": "101", "rows": [{"date": "2025-01-01", "kg": 12.5}], "total": 12.5},
				{"unit_id": "102", "rows": [], "total": 0, "error": "timeout"}
			],
			"total_units": 2, "successful_units": 1, "failed_units": 1
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	resp, err := c.Collect(context.Background(), CollectRequest{
		Units:     []string{"101", "102"},
		StartDate: "2025-01-01",
		EndDate:   "2025-01-07",
	})
	require.NoError(t, err)

	assert.Equal(t, "secret", gotToken)
	assert.Equal(t, []string{"101", "102"}, gotReq.Units)
	assert.Equal(t, "2025-01-01", gotReq.StartDate)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "101", resp.Results[0].UnitID)
	assert.False(t, resp.Results[0].Failed())
	assert.True(t, resp.Results[0].Total.Equal(decimal.RequireFromString("12.5")))
	require.Len(t, resp.Results[0].Rows, 1)
	assert.Equal(t, "2025-01-01", resp.Results[0].Rows[0].Date)

	assert.True(t, resp.Results[1].Failed())
	assert.Equal(t, "timeout", resp.Results[1].Error)
	assert.True(t, resp.Results[1].Total.IsZero())
}

func TestClient_Collect_NonSuccessSurfacesBodyVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Token de API inválido"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "wrong")
	_, err := c.Collect(context.Background(), CollectRequest{Units: []string{"101"}})
	require.Error(t, err)

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusUnauthorized, terr.StatusCode)
	assert.Contains(t, terr.Body, "Token de API inválido")
}

func TestClient_Collect_ConnectionRefused(t *testing.T) {
	// Reserve a port, then close it so nothing is listening.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, "token")
	_, err := c.Collect(context.Background(), CollectRequest{Units: []string{"101"}})

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 0, terr.StatusCode)
	assert.NotEmpty(t, terr.Body)
}

func TestClient_DiscoverUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/discover_units" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"units":[{"unit_id":"101","unit_name":"Hospital Central"}],"total":1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token")
	resp, err := c.DiscoverUnits(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Hospital Central", resp.Units[0].UnitName)
}

func TestClient_CredentialStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		_, _ = w.Write([]byte(`{"has_credentials":true,"username":"operador"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token")
	status, err := c.CredentialStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.HasCredentials)
	assert.Equal(t, "operador", status.Username)
}

func TestClient_UpdateCredentials(t *testing.T) {
	var got Credentials
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token")
	err := c.UpdateCredentials(context.Background(), Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "u", got.Username)
	assert.Equal(t, "p", got.Password)
}

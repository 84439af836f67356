package salesforce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/forcerelay/forcerelay/internal/auth"
)

// testContext routes the oauth2-wrapped client through the stub server's
// transport.
func testContext(srv *httptest.Server) context.Context {
	return context.WithValue(context.Background(), oauth2.HTTPClient, srv.Client())
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	ac := &auth.AuthContext{Token: "tok-123", InstanceURL: srv.URL}
	c, err := NewClient(testContext(srv), ac, nil)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, nil, nil)
	assert.Error(t, err)

	_, err = NewClient(ctx, &auth.AuthContext{Token: "tok"}, nil)
	assert.Error(t, err, "missing instance URL must be rejected")

	_, err = NewClient(ctx, &auth.AuthContext{InstanceURL: "https://x.example.com"}, nil)
	assert.Error(t, err, "missing token must be rejected")
}

func TestClient_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/"+APIVersion+"/query", r.URL.Path)
		assert.Equal(t, "SELECT Id, Name FROM Account LIMIT 2", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(QueryResult{
			TotalSize: 2,
			Done:      true,
			Records: []map[string]any{
				{"Id": "001xx0000001", "Name": "Acme"},
				{"Id": "001xx0000002", "Name": "Globex"},
			},
		})
	}))
	defer srv.Close()

	result, err := testClient(t, srv).Query(testContext(srv), "SELECT Id, Name FROM Account LIMIT 2")
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalSize)
	assert.True(t, result.Done)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "Acme", result.Records[0]["Name"])
}

func TestClient_Query_EmptySOQL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty query")
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Query(testContext(srv), "   ")
	assert.Error(t, err)
}

func TestClient_DescribeSObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/"+APIVersion+"/sobjects/Account/describe", r.URL.Path)

		_ = json.NewEncoder(w).Encode(SObjectDescribe{
			Name:      "Account",
			Label:     "Account",
			Queryable: true,
			Fields: []FieldDescribe{
				{Name: "Id", Type: "id"},
				{Name: "Name", Type: "string", Length: 255},
			},
		})
	}))
	defer srv.Close()

	describe, err := testClient(t, srv).DescribeSObject(testContext(srv), "Account")
	require.NoError(t, err)
	assert.Equal(t, "Account", describe.Name)
	require.Len(t, describe.Fields, 2)
	assert.Equal(t, "Name", describe.Fields[1].Name)
}

func TestClient_ListSObjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/"+APIVersion+"/sobjects", r.URL.Path)

		_ = json.NewEncoder(w).Encode(describeGlobalResponse{
			Sobjects: []SObjectSummary{
				{Name: "Account", Label: "Account", Queryable: true},
				{Name: "CustomThing__c", Label: "Custom Thing", Custom: true},
			},
		})
	}))
	defer srv.Close()

	sobjects, err := testClient(t, srv).ListSObjects(testContext(srv))
	require.NoError(t, err)
	require.Len(t, sobjects, 2)
	assert.True(t, sobjects[1].Custom)
}

func TestClient_GetRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/"+APIVersion+"/sobjects/Contact/003xx0000001", r.URL.Path)
		assert.Equal(t, "FirstName,LastName", r.URL.Query().Get("fields"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"Id":        "003xx0000001",
			"FirstName": "Ada",
			"LastName":  "Lovelace",
		})
	}))
	defer srv.Close()

	record, err := testClient(t, srv).GetRecord(testContext(srv), "Contact", "003xx0000001",
		[]string{"FirstName", "LastName"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", record["FirstName"])
}

func TestClient_CreateRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/services/data/"+APIVersion+"/sobjects/Lead", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Smith", body["LastName"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(SaveResult{ID: "00Qxx0000001", Success: true})
	}))
	defer srv.Close()

	result, err := testClient(t, srv).CreateRecord(testContext(srv), "Lead",
		map[string]any{"LastName": "Smith", "Company": "Acme"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "00Qxx0000001", result.ID)
}

func TestClient_APIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`[{"message":"No such column 'Bogus'","errorCode":"INVALID_FIELD"}]`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Query(testContext(srv), "SELECT Bogus FROM Account")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Len(t, apiErr.Errors, 1)
	assert.Equal(t, "INVALID_FIELD", apiErr.Errors[0].ErrorCode)
	assert.Contains(t, err.Error(), "INVALID_FIELD")
}

func TestClient_APIErrorNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	_, err := testClient(t, srv).ListSObjects(testContext(srv))
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "upstream unavailable")
}

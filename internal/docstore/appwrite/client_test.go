package appwrite

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transport-register/internal/docstore"
)

const docJSON = `{
	"$id": "678bea9f0001",
	"$collectionId": "regs",
	"$databaseId": "db",
	"$createdAt": "2025-01-18T08:15:30.123+00:00",
	"$updatedAt": "2025-01-18T13:02:11.000+00:00",
	"$permissions": [],
	"fullName": "Ama Mensah",
	"location": "Deira",
	"phoneNumber": "0501234567",
	"worshippersToChurch": 2,
	"worshippersFromChurch": 1
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/v1", "project-1", "secret-key", time.Second)
}

func TestListDocumentsSendsQueriesAndHeaders(t *testing.T) {
	var gotQueries []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/databases/db/collections/regs/documents", r.URL.Path)
		assert.Equal(t, "project-1", r.Header.Get("X-Appwrite-Project"))
		assert.Equal(t, "secret-key", r.Header.Get("X-Appwrite-Key"))
		gotQueries = r.URL.Query()["queries[]"]
		_, _ = io.WriteString(w, `{"total": 1, "documents": [`+docJSON+`]}`)
	})

	list, err := client.ListDocuments(context.Background(), "db", "regs",
		docstore.Limit(100), docstore.CursorAfter("abc"), docstore.OrderDesc(docstore.AttrCreatedAt))
	require.NoError(t, err)

	assert.Equal(t, []string{
		`{"method":"limit","values":[100]}`,
		`{"method":"cursorAfter","values":["abc"]}`,
		`{"method":"orderDesc","attribute":"$createdAt"}`,
	}, gotQueries)

	require.Len(t, list.Documents, 1)
	doc := list.Documents[0]
	assert.Equal(t, "678bea9f0001", doc.ID)
	assert.Equal(t, 2025, doc.CreatedAt.Year())
	assert.True(t, doc.UpdatedAt.After(doc.CreatedAt))

	var payload struct {
		FullName            string `json:"fullName"`
		WorshippersToChurch int    `json:"worshippersToChurch"`
	}
	require.NoError(t, doc.Decode(&payload))
	assert.Equal(t, "Ama Mensah", payload.FullName)
	assert.Equal(t, 2, payload.WorshippersToChurch)
}

func TestCreateDocumentBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			DocumentID  string         `json:"documentId"`
			Data        map[string]any `json:"data"`
			Permissions []string       `json:"permissions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, docstore.UniqueID, body.DocumentID)
		assert.Equal(t, "Ama Mensah", body.Data["fullName"])
		assert.Equal(t, []string{`read("any")`}, body.Permissions)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, docJSON)
	})

	doc, err := client.CreateDocument(context.Background(), "db", "regs", "",
		map[string]any{"fullName": "Ama Mensah"}, []string{`read("any")`})
	require.NoError(t, err)
	assert.Equal(t, "678bea9f0001", doc.ID)
}

func TestUpdateAndDeletePaths(t *testing.T) {
	var methods, paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = io.WriteString(w, docJSON)
	})

	_, err := client.UpdateDocument(context.Background(), "db", "regs", "678bea9f0001", map[string]any{"worshippersFromChurch": 1})
	require.NoError(t, err)
	require.NoError(t, client.DeleteDocument(context.Background(), "db", "regs", "678bea9f0001"))

	assert.Equal(t, []string{http.MethodPatch, http.MethodDelete}, methods)
	assert.Equal(t, []string{
		"/v1/databases/db/collections/regs/documents/678bea9f0001",
		"/v1/databases/db/collections/regs/documents/678bea9f0001",
	}, paths)
}

func TestErrorMapping(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"Document with the requested ID could not be found.","code":404,"type":"document_not_found"}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "upstream unavailable")
		}
	})

	err := client.DeleteDocument(context.Background(), "db", "regs", "gone")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	var apiErr *docstore.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "document_not_found", apiErr.Type)

	_, err = client.ListDocuments(context.Background(), "db", "regs")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Code)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
	assert.NotErrorIs(t, err, docstore.ErrNotFound)
}

func TestCreateRejectsNonObjectData(t *testing.T) {
	client := New("http://127.0.0.1:0/v1", "p", "", time.Second)

	_, err := client.CreateDocument(context.Background(), "db", "regs", "", []string{"nope"}, nil)

	assert.Error(t, err)
}

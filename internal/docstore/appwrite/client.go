package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"transport-register/internal/docstore"
)

// Client talks to the Appwrite databases REST API
type Client struct {
	endpoint   string
	projectID  string
	apiKey     string
	httpClient *http.Client
}

// New creates a new Appwrite client. endpoint is the API root, e.g.
// https://cloud.appwrite.io/v1.
func New(endpoint, projectID, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		projectID:  projectID,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type createRequest struct {
	DocumentID  string          `json:"documentId"`
	Data        json.RawMessage `json:"data"`
	Permissions []string        `json:"permissions,omitempty"`
}

type updateRequest struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) documentsPath(databaseID, collectionID string) string {
	return fmt.Sprintf("%s/databases/%s/collections/%s/documents",
		c.endpoint, url.PathEscape(databaseID), url.PathEscape(collectionID))
}

// ListDocuments handles GET /databases/{db}/collections/{col}/documents
func (c *Client) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...docstore.Query) (*docstore.DocumentList, error) {
	values := url.Values{}
	for _, q := range queries {
		values.Add("queries[]", q.String())
	}
	u := c.documentsPath(databaseID, collectionID)
	if len(values) > 0 {
		u += "?" + values.Encode()
	}

	var list docstore.DocumentList
	if err := c.do(ctx, http.MethodGet, u, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateDocument handles POST /databases/{db}/collections/{col}/documents
func (c *Client) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any, permissions []string) (*docstore.Document, error) {
	raw, err := docstore.EncodeData(data)
	if err != nil {
		return nil, err
	}
	if documentID == "" {
		documentID = docstore.UniqueID
	}

	body := createRequest{DocumentID: documentID, Data: raw, Permissions: permissions}
	var doc docstore.Document
	if err := c.do(ctx, http.MethodPost, c.documentsPath(databaseID, collectionID), body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateDocument handles PATCH /databases/{db}/collections/{col}/documents/{id}
func (c *Client) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (*docstore.Document, error) {
	raw, err := docstore.EncodeData(data)
	if err != nil {
		return nil, err
	}

	u := c.documentsPath(databaseID, collectionID) + "/" + url.PathEscape(documentID)
	var doc docstore.Document
	if err := c.do(ctx, http.MethodPatch, u, updateRequest{Data: raw}, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument handles DELETE /databases/{db}/collections/{col}/documents/{id}
func (c *Client) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	u := c.documentsPath(databaseID, collectionID) + "/" + url.PathEscape(documentID)
	return c.do(ctx, http.MethodDelete, u, nil, nil)
}

func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Appwrite-Project", c.projectID)
	if c.apiKey != "" {
		req.Header.Set("X-Appwrite-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &docstore.Error{Code: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(b, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(b))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	if apiErr.Code == 0 {
		apiErr.Code = resp.StatusCode
	}
	return apiErr
}

package docstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UniqueID asks the store to generate the document ID
const UniqueID = "unique()"

// Document is a record in the document store. System attributes are
// prefixed with "$" on the wire; everything else is payload.
type Document struct {
	ID           string          `json:"$id"`
	CollectionID string          `json:"$collectionId"`
	DatabaseID   string          `json:"$databaseId"`
	CreatedAt    time.Time       `json:"$createdAt"`
	UpdatedAt    time.Time       `json:"$updatedAt"`
	Permissions  []string        `json:"$permissions"`
	Data         json.RawMessage `json:"-"`
}

// DocumentList is one page of a list call
type DocumentList struct {
	Total     int        `json:"total"`
	Documents []Document `json:"documents"`
}

type documentMeta Document

// UnmarshalJSON splits system attributes from payload attributes
func (d *Document) UnmarshalJSON(b []byte) error {
	var meta documentMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return err
	}

	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(b, &attrs); err != nil {
		return err
	}
	for k := range attrs {
		if strings.HasPrefix(k, "$") {
			delete(attrs, k)
		}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return err
	}

	*d = Document(meta)
	d.Data = data
	return nil
}

// MarshalJSON flattens payload attributes next to the system attributes
func (d Document) MarshalJSON() ([]byte, error) {
	attrs := map[string]any{}
	if len(d.Data) > 0 {
		if err := json.Unmarshal(d.Data, &attrs); err != nil {
			return nil, fmt.Errorf("failed to decode document data: %w", err)
		}
	}
	permissions := d.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	attrs["$id"] = d.ID
	attrs["$collectionId"] = d.CollectionID
	attrs["$databaseId"] = d.DatabaseID
	attrs["$createdAt"] = d.CreatedAt.Format(time.RFC3339Nano)
	attrs["$updatedAt"] = d.UpdatedAt.Format(time.RFC3339Nano)
	attrs["$permissions"] = permissions
	return json.Marshal(attrs)
}

// Decode unmarshals the payload attributes into v
func (d Document) Decode(v any) error {
	if len(d.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	return nil
}

// Attr returns a single payload attribute, or nil if absent
func (d Document) Attr(name string) any {
	var attrs map[string]any
	if err := json.Unmarshal(d.Data, &attrs); err != nil {
		return nil
	}
	return attrs[name]
}

// EncodeData marshals a payload to a JSON object, rejecting anything else
func EncodeData(data any) (json.RawMessage, error) {
	if raw, ok := data.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document data: %w", err)
	}
	if len(b) == 0 || b[0] != '{' {
		return nil, fmt.Errorf("document data must be an object")
	}
	return b, nil
}

// MergeData overlays patch attributes onto base
func MergeData(base, patch json.RawMessage) (json.RawMessage, error) {
	attrs := map[string]json.RawMessage{}
	if len(base) > 0 {
		if err := json.Unmarshal(base, &attrs); err != nil {
			return nil, err
		}
	}
	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(patch, &overlay); err != nil {
		return nil, err
	}
	for k, v := range overlay {
		attrs[k] = v
	}
	return json.Marshal(attrs)
}

package docstore

import (
	"encoding/json"
)

// Query methods understood by every driver
const (
	MethodLimit       = "limit"
	MethodCursorAfter = "cursorAfter"
	MethodOrderDesc   = "orderDesc"
	MethodOrderAsc    = "orderAsc"
	MethodEqual       = "equal"
)

// System attributes usable in ordering queries
const (
	AttrCreatedAt = "$createdAt"
	AttrUpdatedAt = "$updatedAt"
)

// Query is a single list predicate. It serializes to the JSON query
// form accepted by the REST API, e.g. {"method":"limit","values":[100]}.
type Query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

// Limit caps the number of documents returned
func Limit(n int) Query {
	return Query{Method: MethodLimit, Values: []any{n}}
}

// CursorAfter returns documents positioned after the document with the given ID
func CursorAfter(id string) Query {
	return Query{Method: MethodCursorAfter, Values: []any{id}}
}

// OrderDesc sorts by attribute, newest or largest first
func OrderDesc(attribute string) Query {
	return Query{Method: MethodOrderDesc, Attribute: attribute}
}

// OrderAsc sorts by attribute, oldest or smallest first
func OrderAsc(attribute string) Query {
	return Query{Method: MethodOrderAsc, Attribute: attribute}
}

// Equal matches documents whose attribute equals any of the values
func Equal(attribute string, values ...any) Query {
	return Query{Method: MethodEqual, Attribute: attribute, Values: values}
}

// String returns the wire form of the query
func (q Query) String() string {
	b, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	return string(b)
}

// ParsedQueries is the effective form of a query list
type ParsedQueries struct {
	Limit     int
	Cursor    string
	OrderAttr string
	OrderDesc bool
	Equals    []Query
}

// Parse resolves a query list into its effective options. The last limit,
// cursor and order query win; equality queries accumulate. Without an
// order query documents are ordered by creation time, oldest first.
func Parse(queries []Query, defaultLimit int) ParsedQueries {
	opts := ParsedQueries{Limit: defaultLimit, OrderAttr: AttrCreatedAt}
	for _, q := range queries {
		switch q.Method {
		case MethodLimit:
			if len(q.Values) > 0 {
				if n, ok := toInt(q.Values[0]); ok {
					opts.Limit = n
				}
			}
		case MethodCursorAfter:
			if len(q.Values) > 0 {
				if id, ok := q.Values[0].(string); ok {
					opts.Cursor = id
				}
			}
		case MethodOrderDesc:
			opts.OrderAttr = q.Attribute
			opts.OrderDesc = true
		case MethodOrderAsc:
			opts.OrderAttr = q.Attribute
			opts.OrderDesc = false
		case MethodEqual:
			opts.Equals = append(opts.Equals, q)
		}
	}
	return opts
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

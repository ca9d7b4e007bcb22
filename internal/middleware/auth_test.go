package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubValidator map[string]string

func (s stubValidator) ValidateJWT(token string) (string, error) {
	subject, ok := s[token]
	if !ok {
		return "", errors.New("unknown token")
	}
	return subject, nil
}

func TestAdminOnly(t *testing.T) {
	validator := stubValidator{"good": "coordinator"}

	var gotSubject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = GetSubject(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})
	handler := AdminOnly(validator)(next)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"no token", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusTeapot},
		{"lowercase scheme", "bearer good", http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject = ""
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusTeapot {
				assert.Equal(t, "coordinator", gotSubject)
			} else {
				assert.Empty(t, gotSubject)
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

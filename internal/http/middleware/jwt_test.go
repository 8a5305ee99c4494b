package middleware

import (
	"net/http"
	"testing"
	"time"

	"zentari/internal/service"

	"github.com/gin-gonic/gin"
)

func TestJWT(t *testing.T) {
	service.InitJWT("middleware-test-secret", time.Hour)
	token, err := service.GenerateJWT("42")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	r := gin.New()
	r.GET("/me", JWT(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserIDKey))
	})

	cases := []struct {
		name   string
		path   string
		header http.Header
		status int
		body   string
	}{
		{"bearer header", "/me", http.Header{"Authorization": {"Bearer " + token}}, http.StatusOK, "42"},
		{"query token", "/me?token=" + token, nil, http.StatusOK, "42"},
		{"missing", "/me", nil, http.StatusUnauthorized, ""},
		{"garbage", "/me", http.Header{"Authorization": {"Bearer nope"}}, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := hit(t, r, tc.path, tc.header)
			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d", w.Code, tc.status)
			}
			if tc.body != "" && w.Body.String() != tc.body {
				t.Fatalf("body = %q", w.Body.String())
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := hit(t, r, "/", http.Header{RequestIDHeader: {"abc-123"}})
	if w.Header().Get(RequestIDHeader) != "abc-123" || w.Body.String() != "abc-123" {
		t.Fatalf("client id not propagated: %q", w.Header().Get(RequestIDHeader))
	}

	w = hit(t, r, "/", nil)
	if len(w.Header().Get(RequestIDHeader)) != 36 {
		t.Fatalf("generated id = %q", w.Header().Get(RequestIDHeader))
	}
}

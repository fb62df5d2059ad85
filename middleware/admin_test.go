package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/captcha/utils"
)

func TestAdminRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	good, err := utils.GenerateAdminToken("s3cret", "host", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	forged, _ := utils.GenerateAdminToken("guess", "host", time.Minute)

	tests := []struct {
		name, secret, header string
		status, code         int
	}{
		{"disabled", "", "Bearer " + good, http.StatusForbidden, 40301},
		{"missing header", "s3cret", "", http.StatusUnauthorized, 40101},
		{"bad scheme", "s3cret", "Token " + good, http.StatusUnauthorized, 40102},
		{"forged token", "s3cret", "Bearer " + forged, http.StatusUnauthorized, 40105},
		{"valid", "s3cret", "Bearer " + good, http.StatusNoContent, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.PUT("/", AdminRequired(tt.secret), func(c *gin.Context) {
				if c.GetString(ContextAdminSubjectKey) != "host" {
					t.Error("subject not set")
				}
				c.Status(http.StatusNoContent)
			})
			req := httptest.NewRequest(http.MethodPut, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.code != 0 {
				var body utils.JSONResponse
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Code != tt.code {
					t.Fatalf("body = %s (%v)", w.Body.String(), err)
				}
			}
		})
	}
}

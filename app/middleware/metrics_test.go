package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteGroup(t *testing.T) {
	tests := map[string]string{
		"/api/v1/promo/preview":  "promo",
		"/api/v1/promo/runs/abc": "promo",
		"/api/v1/auth/login":     "auth",
		"/api/v1/sms-templates":  "sms-templates",
		"/api/v1/":               "other",
		"/metrics":               "other",
		"/api/v2/promo/preview":  "other",
	}
	for path, want := range tests {
		assert.Equal(t, want, routeGroup(path), path)
	}
}

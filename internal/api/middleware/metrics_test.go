package middleware

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"/health/live", "/health/live"},
		{"/api/v1/files/public", "/api/v1/files/public"},
		{"/api/v1/files/3f0c1f9e-6a1b-4c43-9b39-0f5a6b9e2d11", "/api/v1/files/{id}"},
		{"/api/v1/files/3f0c1f9e-6a1b-4c43-9b39-0f5a6b9e2d11/download", "/api/v1/files/{id}/download"},
		{"/api/v1/blobs/eyJhbGciOi.x.y", "/api/v1/blobs/{token}"},
		{"/api/v1/leaderboard/popular", "/api/v1/leaderboard/popular"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, ожидался %q", tt.path, got, tt.want)
		}
	}
}

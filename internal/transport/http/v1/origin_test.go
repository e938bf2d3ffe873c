package v1

import "testing"

func TestOriginPolicy(t *testing.T) {
	p := NewOriginPolicy([]string{" https://Desk.example.com/ ", ""})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:8080", true},
		{"http://[::1]:8080", true},
		{"https://desk.example.com", true},
		{"https://evil.example", false},
		{"http://localhost.evil.example", false},
		{"null", false},
		{"file://localhost", false},
	}
	for _, tt := range tests {
		if got := p.Allow(tt.origin); got != tt.want {
			t.Fatalf("Allow(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

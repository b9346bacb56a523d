package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/123", true},
		{"https://youtube.com/watch?v=abc", true},
		{"http://youtu.be/abc", true},
		{"https://M.YouTube.com/watch?v=abc", true},
		{"https://www.test.com/54321", false},
		{"https://youtube.com.evil.org/123", false},
		{"ftp://www.youtube.com/123", false},
		{"www.youtube.com/123", false},
		{"", false},
		{"://bad", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowed(tt.url))
		})
	}
}

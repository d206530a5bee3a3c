package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Duration
	}{
		{"empty", "", 0},
		{"integer seconds", "120", 120 * time.Second},
		{"zero seconds", "0", 0},
		{"negative seconds", "-5", 0},
		{"duration seconds", "1s", time.Second},
		{"duration composite", "6m0s", 6 * time.Minute},
		{"garbage", "soon", 0},
		{"whitespace", "  30  ", 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRetryAfter(tt.in))
		})
	}
}

func TestParseRetryAfterHTTPDate(t *testing.T) {
	future := time.Now().Add(time.Minute).UTC().Format(time.RFC1123)
	d := ParseRetryAfter(future)
	assert.Greater(t, d, 50*time.Second)
	assert.LessOrEqual(t, d, time.Minute)

	past := time.Now().Add(-time.Minute).UTC().Format(time.RFC1123)
	assert.Equal(t, time.Duration(0), ParseRetryAfter(past))
}

func TestUnixMsToTime(t *testing.T) {
	ms := int64(1710511845000)
	assert.Equal(t, ms, UnixMsToTime(ms).UnixMilli())
}

func TestIsInFuture(t *testing.T) {
	assert.True(t, IsInFuture(time.Now().Add(time.Hour).UnixMilli()))
	assert.False(t, IsInFuture(time.Now().Add(-time.Hour).UnixMilli()))
}

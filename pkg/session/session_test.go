package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinURL(t *testing.T) {
	cases := []struct {
		base, path, want string
	}{
		{"https://api.example.com", "/v1/mail", "https://api.example.com/v1/mail"},
		{"https://api.example.com/", "/v1/mail", "https://api.example.com/v1/mail"},
		{"https://api.example.com///", "v1/mail", "https://api.example.com/v1/mail"},
		{"https://api.example.com", "v1/mail", "https://api.example.com/v1/mail"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, JoinURL(c.base, c.path))
	}
}

func TestContextRoundTrip(t *testing.T) {
	h := &Handle{Token: "tok", BaseURL: "https://mail.example.com", ClusterID: "c7"}

	ctx := NewContext(context.Background(), h)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, "https://mail.example.com", got.BaseURL)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestNewContextNilHandle(t *testing.T) {
	ctx := NewContext(context.Background(), nil)
	_, ok := FromContext(ctx)
	assert.False(t, ok)
}

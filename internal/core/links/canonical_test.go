package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "trailing slash", raw: "https://example.com/post/", want: "https://example.com/post"},
		{name: "root slash", raw: "https://example.com/", want: "https://example.com"},
		{name: "case", raw: "HTTPS://Example.COM/Post", want: "https://example.com/Post"},
		{name: "fragment", raw: "https://example.com/a#section", want: "https://example.com/a"},
		{name: "utm params", raw: "https://example.com/a?utm_source=x&utm_medium=y", want: "https://example.com/a"},
		{name: "mixed params sorted", raw: "https://example.com/a?b=2&fbclid=z&a=1", want: "https://example.com/a?a=1&b=2"},
		{name: "whitespace", raw: "  https://example.com/a/  ", want: "https://example.com/a"},
		{name: "not a url", raw: "not a url/", want: "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.raw))
		})
	}
}

func TestCanonicalIsIdempotent(t *testing.T) {
	once := Canonical("https://Example.com/x/?utm_campaign=c&q=go")
	assert.Equal(t, once, Canonical(once))
}

func TestHost(t *testing.T) {
	assert.Equal(t, "example.com", Host("https://www.Example.com:8443/page"))
	assert.Equal(t, "", Host("::bad"))
}

func TestHostMatches(t *testing.T) {
	assert.True(t, HostMatches("x.com", "x.com"))
	assert.True(t, HostMatches("mobile.x.com", "x.com"))
	assert.True(t, HostMatches("www.instagram.com", "instagram.com"))
	assert.False(t, HostMatches("notx.com", "x.com"))
	assert.False(t, HostMatches("", "x.com"))
}

package proxy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasProxy(t *testing.T) {
	t.Parallel()

	require.False(t, New(Config{}).HasProxy())
	require.True(t, New(Config{ProxyURL: "http://127.0.0.1:8118"}).HasProxy())
}

func TestIsProxyTagged(t *testing.T) {
	t.Parallel()

	p := New(Config{TaggedPrefixes: []string{"https://blocked.example/"}})

	require.True(t, p.IsProxyTagged("https://blocked.example/feed.xml"))
	require.True(t, p.IsProxyTagged("HTTPS://BLOCKED.EXAMPLE/feed.xml"))
	require.False(t, p.IsProxyTagged("https://open.example/feed.xml"))
	require.False(t, New(Config{}).IsProxyTagged("https://blocked.example/"))
}

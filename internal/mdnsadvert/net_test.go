package mdnsadvert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstRoutableIPv4ReturnsNonLoopback(t *testing.T) {
	ip, err := firstRoutableIPv4()
	if err != nil {
		t.Skipf("no routable ipv4 interface in this environment: %v", err)
	}
	require.NotNil(t, ip.To4())
	require.False(t, ip.IsLoopback())
}

func TestHostnameAppendsTrailingDot(t *testing.T) {
	orig := netHostname
	defer func() { netHostname = orig }()
	netHostname = func() (string, error) { return "workstation", nil }

	h, err := hostname()
	require.NoError(t, err)
	require.Equal(t, "workstation.", h)
}

package rcoverride

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	v, err := Parse([]byte("1500 1500 1500 1000"))
	require.NoError(t, err)
	assert.Equal(t, []int16{1500, 1500, 1500, 1000}, v)

	v, err = Parse([]byte("1500,1500, 1500,1000,2000,1000\n"))
	require.NoError(t, err)
	assert.Equal(t, []int16{1500, 1500, 1500, 1000, 2000, 1000}, v)

	v, err = Parse([]byte("-32768 32767 0 -1"))
	require.NoError(t, err)
	assert.Equal(t, []int16{-32768, 32767, 0, -1}, v)

	for _, bad := range []string{
		"",
		"1500 1500 1500",
		"1 2 3 4 5 6 7 8 9",
		"1500 1500 1500 abc",
		"1500 1500 1500 32768",
		"-32769 1500 1500 1500",
	} {
		_, err := Parse([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestLatest(t *testing.T) {
	l := NewListener()
	_, ok := l.Latest()
	assert.False(t, ok)

	in := []int16{1, 2, 3, 4}
	l.Set(in)
	in[0] = 100
	v, ok := l.Latest()
	require.True(t, ok)
	assert.Equal(t, []int16{1, 2, 3, 4}, v)
	v[1] = 200
	v, _ = l.Latest()
	assert.Equal(t, int16(2), v[1])
}

func TestLatestMaxAge(t *testing.T) {
	now := time.Unix(100, 0)
	l := NewListener()
	l.now = func() time.Time { return now }
	l.MaxAge = time.Second
	l.Set([]int16{1, 2, 3, 4})
	_, ok := l.Latest()
	assert.True(t, ok)
	now = now.Add(2 * time.Second)
	_, ok = l.Latest()
	assert.False(t, ok)
}

func TestListen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewListener()
	require.NoError(t, l.Listen(ctx, "127.0.0.1:0"))

	conn, err := net.DialUDP("udp", nil, l.Addr().(*net.UDPAddr))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("bogus"))
	require.NoError(t, err)
	_, err = conn.Write([]byte("1500 1400 1300 1000"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		v, ok := l.Latest()
		return ok && assert.ObjectsAreEqual([]int16{1500, 1400, 1300, 1000}, v)
	}, 2*time.Second, 10*time.Millisecond)
}

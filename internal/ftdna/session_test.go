package ftdna

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCookieFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadCookieFile(t *testing.T) {
	path := writeCookieFile(t, `[
		{"name": "auth", "value": "secret", "domain": ".familytreedna.com", "path": "/", "expirationDate": 1924992000},
		{"name": "session", "value": "abc"}
	]`)

	cookies, err := ReadCookieFile(path)
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "auth", cookies[0].Name)
	assert.Equal(t, "secret", cookies[0].Value)
	assert.Equal(t, float64(1924992000), cookies[0].Expires)
	assert.Zero(t, cookies[1].Expires)
}

func TestReadCookieFileInvalid(t *testing.T) {
	_, err := ReadCookieFile(writeCookieFile(t, `[]`))
	assert.Error(t, err)

	_, err = ReadCookieFile(writeCookieFile(t, `[{"value": "nameless"}]`))
	assert.Error(t, err)

	_, err = ReadCookieFile(writeCookieFile(t, `not json`))
	assert.Error(t, err)

	_, err = ReadCookieFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSessionExpiry(t *testing.T) {
	s := &Session{Cookies: []Cookie{
		{Name: "a", Expires: 2000},
		{Name: "b", Expires: 1000},
		{Name: "c"}, // session cookie, no expiry
	}}

	assert.Equal(t, time.Unix(1000, 0), s.MinExpiry())
	assert.False(t, s.Expired(time.Unix(999, 0)))
	assert.True(t, s.Expired(time.Unix(1001, 0)))

	// No expiring cookies at all: never expired.
	s2 := &Session{Cookies: []Cookie{{Name: "c"}}}
	assert.True(t, s2.MinExpiry().IsZero())
	assert.False(t, s2.Expired(time.Now()))
}

func TestNewClientCarriesCookies(t *testing.T) {
	session := &Session{
		Username: "kit-1",
		Cookies: []Cookie{
			{Name: "auth", Value: "secret", Path: "/"},
		},
	}

	client, err := NewClient(session, 10*time.Second)
	require.NoError(t, err)
	require.NotNil(t, client.Jar)

	u, _ := url.Parse(siteURL)
	cookies := client.Jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth", cookies[0].Name)
	assert.Equal(t, "secret", cookies[0].Value)
}

func TestNewClientAnonymous(t *testing.T) {
	client, err := NewClient(nil, time.Second)
	require.NoError(t, err)
	require.NotNil(t, client.Jar)

	u, _ := url.Parse(siteURL)
	assert.Empty(t, client.Jar.Cookies(u))
}

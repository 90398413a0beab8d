package ftdna

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"time"
)

const siteURL = "https://www.familytreedna.com/"

// Cookie is one stored session cookie. Expires is a Unix timestamp in
// seconds; zero means a session cookie without an expiry.
type Cookie struct {
	Name    string  `json:"name"`
	Value   string  `json:"value"`
	Domain  string  `json:"domain,omitempty"`
	Path    string  `json:"path,omitempty"`
	Expires float64 `json:"expirationDate,omitempty"`
}

// Session is a signed-in FTDNA browser session, reconstructed from cookies
// exported out of the browser.
type Session struct {
	Username   string
	ImportedAt time.Time
	Cookies    []Cookie
}

// ReadCookieFile reads a browser cookie export: a JSON array of cookie
// objects in the format produced by common cookie-export extensions.
func ReadCookieFile(path string) ([]Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("read cookie file: no cookies in %s", path)
	}
	for _, c := range cookies {
		if c.Name == "" {
			return nil, fmt.Errorf("read cookie file: cookie without a name in %s", path)
		}
	}
	return cookies, nil
}

// MinExpiry returns the earliest cookie expiry, or the zero time when no
// cookie carries one. The session is effectively dead once any of its
// cookies lapses.
func (s *Session) MinExpiry() time.Time {
	var min time.Time
	for _, c := range s.Cookies {
		if c.Expires == 0 {
			continue
		}
		t := time.Unix(int64(c.Expires), 0)
		if min.IsZero() || t.Before(min) {
			min = t
		}
	}
	return min
}

// Expired reports whether the session has lapsed as of now.
func (s *Session) Expired(now time.Time) bool {
	min := s.MinExpiry()
	return !min.IsZero() && now.After(min)
}

// NewClient builds an HTTP client carrying the session's cookies. A nil
// session yields an anonymous client.
func NewClient(session *Session, timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("new FTDNA client: %w", err)
	}

	if session != nil {
		u, err := url.Parse(siteURL)
		if err != nil {
			return nil, fmt.Errorf("new FTDNA client: %w", err)
		}

		cookies := make([]*http.Cookie, 0, len(session.Cookies))
		for _, c := range session.Cookies {
			hc := &http.Cookie{
				Name:   c.Name,
				Value:  c.Value,
				Domain: c.Domain,
				Path:   c.Path,
			}
			if c.Expires != 0 {
				hc.Expires = time.Unix(int64(c.Expires), 0)
			}
			cookies = append(cookies, hc)
		}
		jar.SetCookies(u, cookies)
	}

	return &http.Client{Jar: jar, Timeout: timeout}, nil
}

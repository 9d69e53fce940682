package web

import (
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strconv"
	"testing"
)

var csrfFieldRe = regexp.MustCompile(`name="gorilla\.csrf\.Token" value="([^"]+)"`)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

// newBrowser returns a client that keeps cookies between requests.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func get(t *testing.T, c *http.Client, u string) string {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	return readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

// csrfTokenFrom extracts the form token rendered into page.
func csrfTokenFrom(t *testing.T, page string) string {
	t.Helper()
	m := csrfFieldRe.FindStringSubmatch(page)
	if m == nil {
		t.Fatal("no csrf token in page")
	}
	return html.UnescapeString(m[1])
}

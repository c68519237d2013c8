package proxy

import (
	"net/http"
	"testing"
	"time"
)

func TestNewHTTPClient_Direct(t *testing.T) {
	t.Parallel()

	c, err := NewHTTPClient("", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if c.Transport != nil {
		t.Error("direct client should use the default transport")
	}
	if c.Timeout != 5*time.Second {
		t.Errorf("Timeout = %s, want 5s", c.Timeout)
	}
}

func TestNewHTTPClient_Socks(t *testing.T) {
	t.Parallel()

	c, err := NewHTTPClient("127.0.0.1:1080", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Transport = %T, want *http.Transport", c.Transport)
	}
	if tr.DialContext == nil {
		t.Error("expected proxy DialContext")
	}
}

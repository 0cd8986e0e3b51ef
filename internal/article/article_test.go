package article

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLeadImagePrefersOpenGraph(t *testing.T) {
	srv := serve(t, `<html><head>
		<meta name="twitter:image" content="https://cdn.example.com/tw.png">
		<meta property="og:image" content="https://cdn.example.com/og.jpg">
		</head><body><img src="/first.png"></body></html>`)

	got, err := New(nil, zap.NewNop()).LeadImage(context.Background(), srv.URL+"/post")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://cdn.example.com/og.jpg" {
		t.Errorf("got %q, want og image", got)
	}
}

func TestLeadImageFallsBackToTwitterThenImg(t *testing.T) {
	srv := serve(t, `<html><head><meta name="twitter:image" content="https://cdn.example.com/tw.png"></head></html>`)
	got, err := New(nil, zap.NewNop()).LeadImage(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://cdn.example.com/tw.png" {
		t.Errorf("got %q", got)
	}

	srv = serve(t, `<html><body><p>hi</p><img src="/file/abc.jpg"><img src="/second.jpg"></body></html>`)
	got, err = New(nil, zap.NewNop()).LeadImage(context.Background(), srv.URL+"/some/page")
	if err != nil {
		t.Fatal(err)
	}
	if got != srv.URL+"/file/abc.jpg" {
		t.Errorf("got %q, want resolved first img", got)
	}
}

func TestLeadImageNone(t *testing.T) {
	srv := serve(t, `<html><body><p>text only</p></body></html>`)
	_, err := New(nil, zap.NewNop()).LeadImage(context.Background(), srv.URL)
	if !errors.Is(err, ErrNoImage) {
		t.Errorf("got %v, want ErrNoImage", err)
	}
}

func TestLeadImageBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if _, err := New(nil, zap.NewNop()).LeadImage(context.Background(), srv.URL); err == nil {
		t.Error("expected error for 404")
	}
}

func TestMatchHost(t *testing.T) {
	hosts := []string{"telegra.ph"}
	tests := []struct {
		link string
		want bool
	}{
		{"https://telegra.ph/Some-Article-01-01", true},
		{"https://TELEGRA.PH/x", true},
		{"https://m.telegra.ph/x", true},
		{"https://nottelegra.ph/x", false},
		{"https://example.com/telegra.ph", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		if got := MatchHost(tt.link, hosts); got != tt.want {
			t.Errorf("MatchHost(%q) = %v, want %v", tt.link, got, tt.want)
		}
	}
}

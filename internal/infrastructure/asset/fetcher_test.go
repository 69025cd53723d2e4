package asset

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

func TestFetchHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("v 1 2 3\n"))
	}))
	defer server.Close()

	rc, err := NewFetcher(Options{}).Fetch(context.Background(), server.URL+"/m.obj")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(raw) != "v 1 2 3\n" {
		t.Fatalf("unexpected body %q", raw)
	}
}

func TestFetchEnforcesSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("v 0 0 0\n", 10)))
	}))
	defer server.Close()

	rc, err := NewFetcher(Options{MaxBytes: 16}).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer rc.Close()
	if _, err := io.ReadAll(rc); !errors.Is(err, errAssetTooLarge) {
		t.Fatalf("expected size limit error, got %v", err)
	}
}

func TestFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	if _, err := NewFetcher(Options{}).Fetch(context.Background(), server.URL); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
}

func TestFetchDataURL(t *testing.T) {
	rc, err := NewFetcher(Options{}).Fetch(context.Background(), "data:model/obj;base64,diAwIDAgMAo=")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	raw, _ := io.ReadAll(rc)
	if string(raw) != "v 0 0 0\n" {
		t.Fatalf("unexpected body %q", raw)
	}

	if _, err := NewFetcher(Options{}).Fetch(context.Background(), "ftp://host/m.obj"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

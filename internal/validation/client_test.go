package validation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIsUserValid(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/GetUser" {
			t.Fatalf("path = %s, want /api/GetUser", r.URL.Path)
		}
		userID := r.URL.Query().Get("userId")
		if userID == "known-user" {
			_, _ = w.Write([]byte(`{"userId":"known-user","userName":"Ann"}`))
			return
		}
		_, _ = w.Write([]byte(`{"error":"no such user"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ok, err := client.IsUserValid(ctx, "known-user")
	if err != nil {
		t.Fatalf("IsUserValid error: %v", err)
	}
	if !ok {
		t.Fatalf("known-user must be valid")
	}

	ok, err = client.IsUserValid(ctx, "missing-user")
	if err != nil {
		t.Fatalf("IsUserValid error: %v", err)
	}
	if ok {
		t.Fatalf("missing-user must be invalid")
	}
}

func TestGetProductName(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/GetProduct" {
			t.Fatalf("path = %s, want /api/GetProduct", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"productId":"75542e38","productName":"Starfruit Explosion"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ok, err := client.IsProductValid(ctx, "75542e38")
	if err != nil {
		t.Fatalf("IsProductValid error: %v", err)
	}
	if !ok {
		t.Fatalf("product must be valid")
	}

	name, err := client.GetProductName(ctx, "75542e38")
	if err != nil {
		t.Fatalf("GetProductName error: %v", err)
	}
	if name != "Starfruit Explosion" {
		t.Fatalf("productName = %q, want Starfruit Explosion", name)
	}
}

func TestServiceUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.IsUserValid(ctx, "anyone")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

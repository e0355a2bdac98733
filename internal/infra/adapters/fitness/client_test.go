//go:build !integration

package fitness

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coach-connect/internal/domain"
)

func TestGetUserWorkout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("credential not forwarded: %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/api/workout/user/u-1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"days":[{"day":"1 - Legs"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/api/", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	t.Run("should return the routine", func(t *testing.T) {
		got, err := c.GetUserWorkout(context.Background(), "tok", "u-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != `{"days":[{"day":"1 - Legs"}]}` {
			t.Fatalf("unexpected body %s", got)
		}
	})

	t.Run("should map non-2xx to not found", func(t *testing.T) {
		_, err := c.GetUserWorkout(context.Background(), "tok", "missing")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSubmit(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		switch r.URL.Path {
		case "/answers":
			_, _ = io.WriteString(w, `{"ok":true}`)
		case "/broken":
			_, _ = io.WriteString(w, `<html>`)
		default:
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"error":"bad"}`)
		}
	}))
	defer srv.Close()
	c, _ := NewClient(srv.URL, time.Second)

	res, err := c.Submit(context.Background(), "/answers", "tok", []byte(`[]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.StatusCode != http.StatusOK || string(res.Body) != `{"ok":true}` || gotBody != `[]` {
		t.Fatalf("unexpected result %+v body %q", res, gotBody)
	}

	res, err = c.Submit(context.Background(), "/editWorkout", "tok", []byte(`[]`))
	if domain.StatusOf(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 status error, got %v", err)
	}
	if string(res.Body) != `{"error":"bad"}` {
		t.Fatalf("expected the body to be kept for logging, got %s", res.Body)
	}

	if _, err := c.Submit(context.Background(), "/broken", "tok", []byte(`[]`)); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected parse failure, got %v", err)
	}
}

func TestSubmitNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := NewClient(url, 200*time.Millisecond)
	if _, err := c.Submit(context.Background(), "/answers", "tok", []byte(`[]`)); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("not a url", time.Second); err == nil {
		t.Fatal("expected an error")
	}
}

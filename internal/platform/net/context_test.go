package net_test

import (
	"context"
	"testing"

	pnet "ossmk/internal/platform/net"
)

func TestWithRequest_And_Getters(t *testing.T) {
	base := context.Background()

	t.Run("request id set", func(t *testing.T) {
		ctx := pnet.WithRequest(base, "req-123")
		if got := pnet.RequestID(ctx); got != "req-123" {
			t.Fatalf("RequestID got %q want %q", got, "req-123")
		}
	})

	t.Run("empty request id is a no-op", func(t *testing.T) {
		ctx := pnet.WithRequest(base, "")
		if got := pnet.RequestID(ctx); got != "" {
			t.Fatalf("RequestID got %q want empty", got)
		}
	})
}

func TestWithLogin(t *testing.T) {
	base := context.Background()

	ctx := pnet.WithLogin(base, "octocat")
	if got := pnet.Login(ctx); got != "octocat" {
		t.Fatalf("Login got %q want %q", got, "octocat")
	}

	if got := pnet.Login(base); got != "" {
		t.Fatalf("Login on bare ctx got %q want empty", got)
	}

	if got := pnet.Login(pnet.WithLogin(base, "")); got != "" {
		t.Fatalf("empty login should be a no-op, got %q", got)
	}
}

// Package net provides utilities for working with request contexts
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ctxKey is an unexported key type for context values
type ctxKey string

const keyLogin ctxKey = "login"

// WithRequest annotates context with the request id
func WithRequest(ctx context.Context, reqID string) context.Context {
	if reqID != "" {
		// set chi RequestID so chimw.GetReqID can retrieve it
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	return ctx
}

// WithLogin annotates context with the forge login being analyzed
func WithLogin(ctx context.Context, login string) context.Context {
	if login != "" {
		ctx = context.WithValue(ctx, keyLogin, login)
	}
	return ctx
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	if v := chimw.GetReqID(ctx); v != "" {
		return v
	}
	return ""
}

// Login returns the analyzed login on the context if present
func Login(ctx context.Context) string {
	if v, ok := ctx.Value(keyLogin).(string); ok {
		return v
	}
	return ""
}

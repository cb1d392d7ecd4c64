// Package auth manages identity against a GoTrue-style HTTP service: password
// sign-in, token refresh, and a watcher that keeps the rest of the app
// informed about who, if anyone, is signed in.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/memovox/memovox/internal/config"
)

// User is the identity attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the token pair returned by the identity service.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// Client speaks the identity service's HTTP API.
type Client struct {
	client *resty.Client
	logger *slog.Logger
}

func NewClient(cfg config.AuthConfig, logger *slog.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(10 * time.Second).
		SetHeader("apikey", cfg.APIKey)
	return &Client{
		client: client,
		logger: logger.With(slog.String("component", "auth")),
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type authError struct {
	Message     string `json:"msg"`
	Description string `json:"error_description"`
}

func (e authError) text() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Description != "" {
		return e.Description
	}
	return "unknown error"
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	var session Session
	var apiErr authError
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(signInRequest{Email: email, Password: password}).
		SetResult(&session).
		SetError(&apiErr).
		Post("/auth/v1/token")
	if err != nil {
		return Session{}, fmt.Errorf("sign in: %w", err)
	}
	if resp.IsError() {
		return Session{}, fmt.Errorf("sign in: %s", apiErr.text())
	}
	c.logger.Info("signed in", slog.String("user_id", session.User.ID))
	return session, nil
}

// Refresh exchanges a refresh token for a fresh session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	var session Session
	var apiErr authError
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "refresh_token").
		SetBody(refreshRequest{RefreshToken: refreshToken}).
		SetResult(&session).
		SetError(&apiErr).
		Post("/auth/v1/token")
	if err != nil {
		return Session{}, fmt.Errorf("refresh session: %w", err)
	}
	if resp.IsError() {
		return Session{}, fmt.Errorf("refresh session: %s", apiErr.text())
	}
	return session, nil
}

// SignOut revokes the session server-side. A failed revocation is logged and
// swallowed; the local session is discarded regardless.
func (c *Client) SignOut(ctx context.Context, accessToken string) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Post("/auth/v1/logout")
	if err != nil {
		c.logger.Warn("sign out request failed", slog.String("error", err.Error()))
		return
	}
	if resp.IsError() {
		c.logger.Warn("sign out rejected", slog.String("status", resp.Status()))
	}
}

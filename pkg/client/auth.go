package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/linkfolio/linkfolio/pkg/models"
)

func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	req := RegisterRequest{
		Email:    email,
		Password: password,
		Name:     name,
	}

	result, err := call[AuthResponse](ctx, c, http.MethodPost, "/api/auth/register", req)
	if err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}

	c.SetAuthToken(result.Token)

	return result, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	req := LoginRequest{
		Email:    email,
		Password: password,
	}

	result, err := call[AuthResponse](ctx, c, http.MethodPost, "/api/auth/login", req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}

	c.SetAuthToken(result.Token)

	return result, nil
}

// Logout revokes the current token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.send(ctx, http.MethodPost, "/api/auth/logout", nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}

	c.SetAuthToken("")

	return nil
}

func (c *Client) GetCurrentUser(ctx context.Context) (*models.User, error) {
	result, err := call[models.User](ctx, c, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("get current user request failed: %w", err)
	}

	return result, nil
}

package umapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"aum/internal/cache"
	"aum/internal/config"
	"aum/internal/errors"
	"aum/internal/validation"
)

// usersResponse is the envelope the paged user listing returns
type usersResponse struct {
	Users    []UserInfo `json:"users"`
	LastPage bool       `json:"lastPage"`
}

// GetUser fetches a single user by email
func (c *Client) GetUser(ctx context.Context, email string) (*UserInfo, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	endpoint := c.userEndpoint(email)
	ttl := config.UserTTL
	raw, err := c.Call(ctx, endpoint, "GET", nil, &ttl)
	if err != nil {
		return nil, err
	}

	var resp usersResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}
	if len(resp.Users) == 0 {
		return nil, &errors.APIError{
			Type:      errors.ErrorTypeNotFound,
			Message:   fmt.Sprintf("User %s not found in organization", email),
			Retryable: false,
			Context:   map[string]string{"email": email},
		}
	}

	return &resp.Users[0], nil
}

// ListUsers walks the paged listing until the API reports the last page
func (c *Client) ListUsers(ctx context.Context) ([]UserInfo, error) {
	var users []UserInfo

	for page := 0; ; page++ {
		endpoint := fmt.Sprintf("/v2/usermanagement/users/%s?page=%d&pageSize=%d",
			url.PathEscape(c.orgID), page, c.pageSize)
		ttl := config.UserListTTL
		raw, err := c.Call(ctx, endpoint, "GET", nil, &ttl)
		if err != nil {
			return nil, err
		}

		var resp usersResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse user listing page %d: %w", page, err)
		}

		users = append(users, resp.Users...)
		if resp.LastPage {
			break
		}
	}

	return users, nil
}

// GetProducts fetches the organization's product profiles
func (c *Client) GetProducts(ctx context.Context) ([]ProductInfo, error) {
	endpoint := fmt.Sprintf("/v2/usermanagement/products/%s", url.PathEscape(c.orgID))
	ttl := config.ProductListTTL
	raw, err := c.Call(ctx, endpoint, "GET", nil, &ttl)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Products []ProductInfo `json:"products"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse products response: %w", err)
	}

	return resp.Products, nil
}

// GetGroups fetches the organization's user groups
func (c *Client) GetGroups(ctx context.Context) ([]GroupInfo, error) {
	endpoint := fmt.Sprintf("/v2/usermanagement/groups/%s", url.PathEscape(c.orgID))
	ttl := config.GroupListTTL
	raw, err := c.Call(ctx, endpoint, "GET", nil, &ttl)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Groups []GroupInfo `json:"groups"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse groups response: %w", err)
	}

	return resp.Groups, nil
}

// CreateUser provisions a user with initial products and groups
func (c *Client) CreateUser(ctx context.Context, user *User) (json.RawMessage, error) {
	if err := user.Validate(); err != nil {
		return nil, errors.WrapValidationError(err, user.Email)
	}
	return c.action(ctx, user.provisionPayload())
}

// UpdateUser applies field updates to an existing user
func (c *Client) UpdateUser(ctx context.Context, email string, updates map[string]any) (json.RawMessage, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	return c.action(ctx, updatePayload(email, updates))
}

// DeleteUser removes a user from the organization
func (c *Client) DeleteUser(ctx context.Context, email string) (json.RawMessage, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	return c.action(ctx, deprovisionPayload(email))
}

// AssignProducts grants products to a user
func (c *Client) AssignProducts(ctx context.Context, email string, products []string) (json.RawMessage, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	return c.action(ctx, productsPayload(email, "add", products))
}

// RemoveProducts revokes products from a user
func (c *Client) RemoveProducts(ctx context.Context, email string, products []string) (json.RawMessage, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	return c.action(ctx, productsPayload(email, "remove", products))
}

// AddToGroups adds a user to groups
func (c *Client) AddToGroups(ctx context.Context, email string, groups []string) (json.RawMessage, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	return c.action(ctx, groupsPayload(email, "add", groups))
}

// IsUserCached reports whether a user lookup would be served from cache.
// Used by the browser UI to mark already-fetched users.
func (c *Client) IsUserCached(email string) bool {
	key := cache.RequestKey(c.userEndpoint(email), "GET", nil)
	return c.cache.Contains(key)
}

// action posts one action document to the org's action endpoint
func (c *Client) action(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	ttl := config.ActionTTL
	return c.Call(ctx, c.actionEndpoint(), "POST", payload, &ttl)
}

func (c *Client) actionEndpoint() string {
	return fmt.Sprintf("/v2/usermanagement/action/%s", url.PathEscape(c.orgID))
}

func (c *Client) userEndpoint(email string) string {
	return fmt.Sprintf("/v2/usermanagement/users/%s?email=%s",
		url.PathEscape(c.orgID), url.QueryEscape(email))
}

// validateEmail wraps validation failures in the error taxonomy so they
// propagate immediately, bypassing the retry loop.
func validateEmail(email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return errors.WrapValidationError(err, email)
	}
	return nil
}

package umapi

import (
	"fmt"

	"aum/internal/validation"
)

// User describes one managed user the way bulk input files provide it
type User struct {
	Email     string   `json:"email"`
	FirstName string   `json:"firstname"`
	LastName  string   `json:"lastname"`
	Country   string   `json:"country"`
	Products  []string `json:"products,omitempty"`
	Groups    []string `json:"groups,omitempty"`
}

// Validate checks all user fields before any network attempt is made
func (u *User) Validate() error {
	if err := validation.ValidateEmail(u.Email); err != nil {
		return err
	}
	if u.FirstName == "" || u.LastName == "" {
		return fmt.Errorf("first and last name are required for %s", u.Email)
	}
	if u.Country != "" {
		if err := validation.ValidateCountry(u.Country); err != nil {
			return err
		}
	}
	for _, p := range u.Products {
		if err := validation.ValidateProduct(p); err != nil {
			return err
		}
	}
	for _, g := range u.Groups {
		if err := validation.ValidateGroup(g); err != nil {
			return err
		}
	}
	return nil
}

// provisionPayload builds the action document the User Management API
// expects for creating a user and granting initial products and groups
func (u *User) provisionPayload() map[string]any {
	country := u.Country
	if country == "" {
		country = "US"
	}

	actions := []any{
		map[string]any{"addUser": map[string]any{}},
	}
	if len(u.Products) > 0 {
		actions = append(actions, map[string]any{"add": map[string]any{"product": u.Products}})
	}
	if len(u.Groups) > 0 {
		actions = append(actions, map[string]any{"add": map[string]any{"group": u.Groups}})
	}

	return map[string]any{
		"user": map[string]any{
			"email":     u.Email,
			"firstname": u.FirstName,
			"lastname":  u.LastName,
			"country":   country,
		},
		"do": actions,
	}
}

// deprovisionPayload builds the action document removing a user from the org
func deprovisionPayload(email string) map[string]any {
	return map[string]any{
		"user": map[string]any{"email": email},
		"do":   []any{map[string]any{"removeFromOrg": map[string]any{}}},
	}
}

// updatePayload builds the action document applying field updates
func updatePayload(email string, updates map[string]any) map[string]any {
	return map[string]any{
		"user": map[string]any{"email": email},
		"do":   []any{map[string]any{"update": updates}},
	}
}

// productsPayload builds the action document adding or removing products
func productsPayload(email, verb string, products []string) map[string]any {
	return map[string]any{
		"user": map[string]any{"email": email},
		"do":   []any{map[string]any{verb: map[string]any{"product": products}}},
	}
}

// groupsPayload builds the action document adding or removing groups
func groupsPayload(email, verb string, groups []string) map[string]any {
	return map[string]any{
		"user": map[string]any{"email": email},
		"do":   []any{map[string]any{verb: map[string]any{"group": groups}}},
	}
}

// UserInfo is what the listing endpoints return per user
type UserInfo struct {
	Email     string   `json:"email"`
	Username  string   `json:"username,omitempty"`
	FirstName string   `json:"firstname,omitempty"`
	LastName  string   `json:"lastname,omitempty"`
	Country   string   `json:"country,omitempty"`
	Status    string   `json:"status,omitempty"`
	Products  []string `json:"products,omitempty"`
	Groups    []string `json:"groups,omitempty"`
}

// ProductInfo describes an available product profile
type ProductInfo struct {
	Name         string `json:"name"`
	LicenseQuota int64  `json:"licenseQuota,omitempty"`
	LicenseCount int64  `json:"licenseCount,omitempty"`
}

// GroupInfo describes a user group
type GroupInfo struct {
	Name        string `json:"groupName"`
	MemberCount int64  `json:"memberCount,omitempty"`
}

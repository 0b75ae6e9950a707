package client

import (
	"context"
	"net/http"
	"strconv"
)

// Users lists all accounts. Admins only.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/users", nil, &out, "Failed to fetch users."); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// UpdateUser changes the profile of user id. changed is false when the
// server found nothing to update; u is then the zero User.
func (c *Client) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (u User, changed bool, err error) {
	var out struct {
		User *User `json:"user"`
	}
	path := "/users/" + strconv.FormatInt(id, 10) + "/update"
	if err := c.do(ctx, http.MethodPut, path, req, &out, "Failed to update profile."); err != nil {
		return User{}, false, err
	}
	if out.User == nil {
		return User{}, false, nil
	}
	return *out.User, true, nil
}

// DeleteUser removes user id. Deleting yourself also ends the session.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/users/"+strconv.FormatInt(id, 10)+"/delete", nil, nil, "Failed to delete user.")
}

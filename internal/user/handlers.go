package user

import (
	"errors"

	"github.com/dmitrymomot/starter/core/binder"
	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/core/response"
	"github.com/dmitrymomot/starter/middleware"
)

const (
	msgRoleProhibited = "You are not authorized to modify security roles."
	msgInvalidRole    = "The selected role is invalid."
	msgNoChanges      = "No changes detected."
	msgUpdated        = "Profile updated successfully."
	msgDeleted        = "User deleted successfully."
)

// UpdateRequest is the body of PUT /users/{id}/update.
type UpdateRequest struct {
	Name  string  `json:"name" sanitize:"single_line" validate:"required;max:255"`
	Bio   *string `json:"bio" sanitize:"trim,no_control" validate:"max:1000"`
	Phone *string `json:"phone" sanitize:"trim" validate:"max:20;phone"`
	Role  *string `json:"role" validate:"in:user,admin"`
}

// UpdateResponse is returned when a profile changed.
type UpdateResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// ListResponse is the body of GET /users.
type ListResponse struct {
	Users []User `json:"users"`
}

// UpdateHandler updates the profile of the user in the {id} path parameter.
// It must run behind RequireAuth.
func UpdateHandler[C handler.Context](svc *Service) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		actor, ok := middleware.GetUser[User](ctx)
		if !ok {
			return response.Error(response.ErrUnauthorized)
		}
		id, err := binder.PathInt64(ctx.Request(), "id")
		if err != nil {
			return response.Error(err)
		}

		// Authorization runs before body validation.
		target, err := svc.Get(ctx, id)
		if err != nil {
			return response.Error(httpError(err))
		}
		if !actor.CanManage(target) {
			return response.Error(response.ErrForbidden)
		}

		req, err := binder.Bind[UpdateRequest](ctx.Request())
		if err != nil {
			return response.Error(err)
		}

		params := UpdateParams{Name: req.Name, Bio: req.Bio, Phone: req.Phone}
		if req.Role != nil {
			role := Role(*req.Role)
			params.Role = &role
		}

		u, changed, err := svc.Update(ctx, actor, id, params)
		if err != nil {
			return response.Error(httpError(err))
		}
		if !changed {
			return response.Message(msgNoChanges)
		}
		if u.ID == actor.ID {
			middleware.SetUser(ctx, u)
		}
		return response.JSON(UpdateResponse{Message: msgUpdated, User: u})
	}
}

// DeleteHandler deletes the user in the {id} path parameter.
// Deleting yourself also ends the current session.
func DeleteHandler[C handler.Context](svc *Service) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		actor, ok := middleware.GetUser[User](ctx)
		if !ok {
			return response.Error(response.ErrUnauthorized)
		}
		id, err := binder.PathInt64(ctx.Request(), "id")
		if err != nil {
			return response.Error(err)
		}

		if err := svc.Delete(ctx, actor, id); err != nil {
			return response.Error(httpError(err))
		}

		if id == actor.ID {
			if sess, ok := middleware.GetSession(ctx); ok {
				sess.Logout()
				middleware.SetSession(ctx, sess)
			}
		}
		return response.Message(msgDeleted)
	}
}

// ListHandler returns every user. Mount it behind RequireRole(RoleAdmin, RoleSuperAdmin).
func ListHandler[C handler.Context](svc *Service) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		users, err := svc.List(ctx)
		if err != nil {
			return response.Error(err)
		}
		if users == nil {
			users = []User{}
		}
		return response.JSON(ListResponse{Users: users})
	}
}

// RequireRole rejects users without one of roles with 403.
// It must run after RequireAuth.
func RequireRole[C handler.Context](roles ...Role) handler.Middleware[C] {
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			u, ok := middleware.GetUser[User](ctx)
			if !ok {
				return response.Error(response.ErrUnauthorized)
			}
			if !u.HasRole(roles...) {
				return response.Error(response.ErrForbidden)
			}
			return next(ctx)
		}
	}
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return response.ErrNotFound
	case errors.Is(err, ErrForbidden):
		return response.ErrForbidden
	case errors.Is(err, ErrRoleProhibited):
		return response.ValidationError(map[string][]string{"role": {msgRoleProhibited}}, "role")
	case errors.Is(err, ErrInvalidRole):
		return response.ValidationError(map[string][]string{"role": {msgInvalidRole}}, "role")
	case errors.Is(err, ErrEmailTaken):
		return response.ErrConflict.WithError(err)
	}
	return err
}

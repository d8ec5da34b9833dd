// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/passgate/internal/platform/apperr"
	requestutil "github.com/taibuivan/passgate/internal/platform/request"
	"github.com/taibuivan/passgate/internal/platform/respond"
	"github.com/taibuivan/passgate/internal/platform/validate"
	"github.com/taibuivan/passgate/pkg/pagination"
	"github.com/taibuivan/passgate/pkg/uuid"
)

// Handler implements the HTTP layer for account reads.
//
// Access control is applied by the caller when mounting: Routes expects an
// authenticated caller, AdminRoutes an administrator.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns the endpoints available to any authenticated caller.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", handler.getMe)
	return router
}

// AdminRoutes returns the user directory endpoints.
func (handler *Handler) AdminRoutes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", handler.listUsers)
	router.Get("/{id}", handler.getUser)
	return router
}

// # Profile Endpoints

/*
GET /api/v1/me.

Description: Retrieves the profile of the authenticated caller.

Response:
  - 200: Profile
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	snapshot, err := requestutil.RequiredSession(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.accountService.GetProfile(request.Context(), snapshot.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

// # Admin Endpoints

/*
GET /api/v1/admin/users.

Request:
  - page: int (query, optional, 1-indexed)
  - limit: int (query, optional)

Response:
  - 200: []Profile with pagination meta
  - 400: ErrValidation: page or limit is not a number
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	params, err := pagination.FromRequest(request)
	var paramErr *pagination.ParamError
	if errors.As(err, &paramErr) {
		respond.Error(writer, request, validate.FieldError(paramErr.Key, "Must be an integer"))
		return
	}
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("page and limit must be numbers"))
		return
	}

	profiles, total, err := handler.accountService.ListUsers(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, profiles, pagination.NewMeta(params, total))
}

/*
GET /api/v1/admin/users/{id}.

Response:
  - 200: Profile
  - 404: ErrNotFound
*/
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "id")
	if !uuid.Valid(userID) {
		respond.Error(writer, request, ErrNotFound)
		return
	}

	profile, err := handler.accountService.GetProfile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

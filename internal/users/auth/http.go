// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/passgate/internal/platform/constants"
	requestutil "github.com/taibuivan/passgate/internal/platform/request"
	"github.com/taibuivan/passgate/internal/platform/respond"
	"github.com/taibuivan/passgate/internal/platform/sec"
	"github.com/taibuivan/passgate/internal/users/session"
)

// # Definitions & Constructors

// CookieOptions configures the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
}

// Handler implements the authentication endpoints.
//
// Every successful mutation answers with redirect_to, the page the client
// should show next.
type Handler struct {
	authService *Service
	sessions    *session.Manager
	signer      *sec.CookieSigner
	cookie      CookieOptions
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, sessions *session.Manager, signer *sec.CookieSigner, cookie CookieOptions) *Handler {
	return &Handler{
		authService: service,
		sessions:    sessions,
		signer:      signer,
		cookie:      cookie,
	}
}

/*
Routes returns a [chi.Router] with the authentication endpoints.

# Endpoints
  - GET  /session         : Current caller (never rate limited)
  - POST /logout          : Ends the session
  - POST /register        : Rate limited
  - POST /login           : Rate limited
  - POST /forgot-password : Rate limited
  - POST /reset-password  : Rate limited
*/
func (handler *Handler) Routes(rateLimit func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Get("/session", handler.getSession)
	router.Post("/logout", handler.logout)

	router.Group(func(r chi.Router) {
		r.Use(rateLimit)
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/forgot-password", handler.forgotPassword)
		r.Post("/reset-password", handler.resetPassword)
	})

	return router
}

// # Payloads

type registerRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token     string `json:"token"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// sessionResponse is the view-model returned by the session endpoints.
type sessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	Session       *session.Snapshot `json:"session,omitempty"`
	RedirectTo    string            `json:"redirect_to,omitempty"`
	Message       string            `json:"message,omitempty"`
}

// # Endpoints

/*
GET /api/v1/auth/session.

Response:
  - 200: sessionResponse (authenticated=false for anonymous callers)
*/
func (handler *Handler) getSession(writer http.ResponseWriter, request *http.Request) {
	snapshot := requestutil.Session(request)
	respond.OK(writer, sessionResponse{Authenticated: snapshot != nil, Session: snapshot})
}

/*
POST /api/v1/auth/register.

Request:
  - Body: registerRequest

Response:
  - 201: sessionResponse, with the session cookie set
  - 400: VALIDATION_ERROR
  - 409: PASSWORD_MISMATCH, USER_EXISTS
  - 429: RATE_LIMITED
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Register(request.Context(), RegisterInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.setSessionCookie(writer, result); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, sessionResponse{
		Authenticated: true,
		Session:       &result.Snapshot,
		RedirectTo:    constants.HomePath,
	})
}

/*
POST /api/v1/auth/login.

Request:
  - Body: loginRequest

Response:
  - 200: sessionResponse, with the session cookie set
  - 400: INVALID_EMAIL
  - 401: WRONG_PASSWORD
  - 404: USER_NOT_FOUND
  - 429: RATE_LIMITED
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.setSessionCookie(writer, result); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessionResponse{
		Authenticated: true,
		Session:       &result.Snapshot,
		RedirectTo:    constants.HomePath,
	})
}

/*
POST /api/v1/auth/logout.

Description: Destroys the session if the cookie resolves to one, and always
clears the cookie.

Response:
  - 200: sessionResponse
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if cookie, err := request.Cookie(handler.cookie.Name); err == nil && cookie.Value != "" {
		if token, err := handler.signer.Verify(cookie.Value); err == nil {
			handler.authService.Logout(request.Context(), token)
		}
	}

	handler.clearSessionCookie(writer)
	respond.OK(writer, sessionResponse{RedirectTo: constants.HomePath})
}

/*
POST /api/v1/auth/forgot-password.

Request:
  - Body: forgotPasswordRequest

Response:
  - 200: sessionResponse with a confirmation message
  - 400: INVALID_EMAIL
  - 404: USER_NOT_FOUND
  - 502: NOTIFICATION_FAILED
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.RequestReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessionResponse{
		Authenticated: requestutil.Session(request) != nil,
		RedirectTo:    constants.HomePath,
		Message:       "A password reset link has been sent to your email",
	})
}

/*
POST /api/v1/auth/reset-password.

Request:
  - Body: resetPasswordRequest

Response:
  - 200: sessionResponse
  - 400: VALIDATION_ERROR
  - 409: PASSWORD_MISMATCH, INVALID_OR_EXPIRED_TOKEN
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.SubmitReset(request.Context(), SubmitResetInput(input)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessionResponse{
		Authenticated: requestutil.Session(request) != nil,
		RedirectTo:    constants.LoginPath,
		Message:       "Your password has been changed",
	})
}

// # Cookie Handling

func (handler *Handler) setSessionCookie(writer http.ResponseWriter, result Result) error {
	expiresAt := handler.sessions.CookieExpiry(result.Snapshot)

	value, err := handler.signer.Sign(result.Token, expiresAt)
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     handler.cookie.Name,
		Value:    value,
		Path:     "/",
		Secure:   handler.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if !expiresAt.IsZero() {
		cookie.Expires = expiresAt
		cookie.MaxAge = int(expiresAt.Sub(result.Snapshot.CreatedAt) / time.Second)
	}

	http.SetCookie(writer, cookie)
	return nil
}

func (handler *Handler) clearSessionCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     handler.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   handler.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

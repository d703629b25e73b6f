package controllers

import (
	"net/http"

	"github.com/sarpraslab/peminjaman-backend/api/middleware"
	"github.com/sarpraslab/peminjaman-backend/api/responses"
	"github.com/sarpraslab/peminjaman-backend/api/validators"
	"github.com/sarpraslab/peminjaman-backend/internal/auth"
	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth")
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "login", nil, result.Events)

		responses.WriteSuccess(w, result)
	}
}

// AuthRegister creates a borrower account.
func AuthRegister(reg auth.RegisterService, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			unavailable(w, r, logg, "register")
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := reg.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "register", nil, result.Events)

		responses.WriteCreated(w, result)
	}
}

// AuthLogout revokes the caller's session.
func AuthLogout(svc auth.Service, hooks Hooks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		list, err := svc.Logout(r.Context(), actor, middleware.AccessIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hooks.done(r.Context(), "logout", nil, list)

		w.WriteHeader(http.StatusNoContent)
	}
}

func AuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		user, err := svc.Me(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

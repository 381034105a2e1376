package web

import (
	"errors"
	"log/slog"
	"net/http"

	"therapro/internal/adapters/http/middleware"
	"therapro/internal/application/orchestrators"
	domainAccount "therapro/internal/domain/account"
)

type loginPage struct {
	Username string
}

// handleHome forwards to the dashboard of the session's role, or to login.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, domainAccount.DashboardPath(sess.Role), http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok && domainAccount.IsValidRole(sess.Role) {
		http.Redirect(w, r, domainAccount.DashboardPath(sess.Role), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", "Sign in", loginPage{})
}

// handleLogin handles POST /login from the form or as JSON.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var input orchestrators.LoginInput
	if isJSONBody(r) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		input = orchestrators.LoginInput{Username: body.Username, Password: body.Password}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input = orchestrators.LoginInput{Username: r.FormValue("username"), Password: r.FormValue("password")}
	}

	result, err := orchestrators.ExecuteLogin(ctx, input, orchestrators.LoginDeps{AccountStore: s.stores.AccountStore})
	if err == nil || errors.Is(err, orchestrators.ErrInvalidCredentials) {
		s.opts.Metrics.Login(err == nil)
	}
	if errors.Is(err, orchestrators.ErrInvalidCredentials) {
		if isJSONBody(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}
		s.renderError(w, r, http.StatusUnauthorized, "login.html", "Sign in", "Invalid credentials", loginPage{Username: input.Username})
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	token, err := s.opts.Sessions.Create(ctx, middleware.Session{
		AccountID:   result.AccountID,
		Username:    result.Username,
		Role:        result.Role,
		TherapistID: result.TherapistID,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token, s.opts.SessionTTL)

	dest := domainAccount.DashboardPath(result.Role)
	if isJSONBody(r) {
		writeJSON(w, http.StatusOK, map[string]string{"role": result.Role, "redirect": dest})
		return
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.SessionToken(r); ok {
		s.opts.Sessions.Delete(r.Context(), token)
	}
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		slog.Info("auth_event", "event", "logout", "username", sess.Username)
	}
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

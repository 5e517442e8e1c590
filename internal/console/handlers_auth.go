package console

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/inferx-io/inferx-console/internal/session"
)

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "login.html", pageData{Title: "Log in", Data: r.URL.Query().Get("next")})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	res, err := s.api.Login(r.Context(), email, password)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("email", email).Msg("login failed")
		s.render(w, "login.html", pageData{
			Title: "Log in",
			Error: "Login failed. Check your email and password.",
			Data:  r.PostFormValue("next"),
		})
		return
	}

	s.sessions.Login(session.Record{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		UserEmail:    res.User.Email,
		UserName:     res.User.Name,
	})
	writeSessionCookie(w, res.AccessToken)
	http.Redirect(w, r, safeNext(r.PostFormValue("next")), http.StatusSeeOther)
}

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "register.html", pageData{Title: "Create account"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	name := r.PostFormValue("name")

	res, err := s.api.Register(r.Context(), email, password, name)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("email", email).Msg("registration failed")
		s.render(w, "register.html", pageData{
			Title: "Create account",
			Error: "Registration failed. The email may already be in use.",
		})
		return
	}

	s.sessions.Login(session.Record{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		UserEmail:    res.User.Email,
		UserName:     res.User.Name,
	})
	writeSessionCookie(w, res.AccessToken)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// logout clears the store and expires the mirror cookie in the same handler,
// so no request can observe one without the other.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout()
	expireSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return "/dashboard"
}

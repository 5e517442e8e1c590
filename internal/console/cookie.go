package console

import "net/http"

// sessionCookieName mirrors the current access token for the route guard,
// which gates on presence alone. API calls never read it; they carry an
// Authorization header filled from the session store instead.
const sessionCookieName = "access_token"

const sessionCookieMaxAge = 86400 // 24h

// writeSessionCookie sets the mirror cookie. No HttpOnly or Secure: the web
// client reads this cookie from script, so hardening it would change
// externally observable behavior.
func writeSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		SameSite: http.SameSiteStrictMode,
	})
}

func expireSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		SameSite: http.SameSiteStrictMode,
	})
}

func requestCookie(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

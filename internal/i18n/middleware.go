package i18n

import "net/http"

const langCookieName = "lang"

// Middleware picks the request language from the ?lang= parameter, the lang
// cookie or Accept-Language, in that order. A ?lang= choice is remembered in
// the cookie.
func Middleware(secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cookieLang string
			if c, err := r.Cookie(langCookieName); err == nil {
				cookieLang = c.Value
			}
			query := r.URL.Query().Get("lang")
			lang := Match(query, cookieLang, r.Header.Get("Accept-Language"))
			if query != "" {
				http.SetCookie(w, &http.Cookie{
					Name:     langCookieName,
					Value:    lang,
					Path:     "/",
					MaxAge:   365 * 24 * 3600,
					HttpOnly: true,
					Secure:   secureCookies,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), lang)))
		})
	}
}

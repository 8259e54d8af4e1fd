package locale

import (
	"context"
	"net/http"
)

// CookieName remembers an explicit language choice between requests.
const CookieName = "apply_locale"

type ctxKey struct{}

// FromRequest picks the request locale.  An explicit ?lang= wins, then the
// remembered cookie, then the Accept-Language header.
func FromRequest(r *http.Request) Locale {
	if q := r.URL.Query().Get("lang"); q != "" {
		if l := Locale(q); l.Valid() {
			return l
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		if l := Locale(c.Value); l.Valid() {
			return l
		}
	}
	return Parse(r.Header.Get("Accept-Language"))
}

// WithContext stores l on ctx.
func WithContext(ctx context.Context, l Locale) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the locale stored by WithContext, or Default.
func FromContext(ctx context.Context) Locale {
	if l, ok := ctx.Value(ctxKey{}).(Locale); ok && l.Valid() {
		return l
	}
	return Default
}

// Middleware resolves the locale once per request and stores it on the
// request context.  An explicit ?lang= choice is remembered in a cookie.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := FromRequest(r)
		if q := r.URL.Query().Get("lang"); q != "" && Locale(q).Valid() {
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    string(l),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), l)))
	})
}

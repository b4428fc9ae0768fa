// internal/httpserver/auth.go
//
// Accounts, JWT cookies and owner resolution.
//   - POST /auth/signup, /auth/login: issue a JWT cookie and move the guest's
//     profile onto the account.
//   - POST /auth/logout: clear the cookie.
//   - GET /auth/me: current user (requires auth).
//
// Guests get a long-lived anonymous cookie; its value keys their profile
// and game sessions until they sign in.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/lemonparty/internal/store"
)

const anonCookieName = "lemon_anon"

// Request payload for signup/login.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authUser is placed into request context by auth middleware.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ctxUserKey is the context key type for storing authUser.
type ctxUserKey struct{}

func currentUser(r *http.Request) *authUser {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	return me
}

// owner returns the profile key for r: the signed-in user, else the
// anonymous cookie id (set on first use).
func (s *Server) owner(w http.ResponseWriter, r *http.Request) string {
	if me := currentUser(r); me != nil {
		return me.ID
	}
	return s.ensureAnonID(w, r)
}

// mountAuthRoutes registers /auth/*.
func (s *Server) mountAuthRoutes() {
	s.r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.With(s.requireAuth()).Get("/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, currentUser(r))
		})
	})
}

// handleSignup creates a new user, signs a JWT, sets the auth cookie and
// claims the guest profile.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decode(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if err := validateSignup(username, body.Password); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	u, err := s.createUser(r.Context(), username, body.Password)
	if errors.Is(err, store.ErrUsernameTaken) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Username taken"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !s.signIn(w, r, u) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

// handleLogin authenticates a user, sets the cookie and claims the guest profile.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decode(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
		return
	}
	u, err := s.deps.Backend.UserByName(r.Context(), strings.TrimSpace(body.Username))
	if err != nil || !checkPassword(u.PasswordHash, body.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
		return
	}
	if !s.signIn(w, r, u) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, s.cfg.CookieName, "", time.Time{}, -1)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// signIn issues the cookie and moves the guest profile to u. It writes
// the error response itself and reports whether the caller may continue.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, u store.User) bool {
	tok, exp, err := s.signJWT(u.ID, u.Username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sign_failed"})
		return false
	}
	s.setCookie(w, s.cfg.CookieName, tok, exp, 0)
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		if err := s.deps.Backend.ClaimProfile(r.Context(), c.Value, u.ID); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Str("user", u.ID).Msg("claim guest profile")
		}
	}
	return true
}

// --------------------------- optional auth ---------------------------------

// withOptionalAuth decorates requests with user context if a valid JWT is present.
// It never 401s; used for routes where guests are allowed.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if me, err := s.authenticate(r); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, me))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth enforces a valid JWT and injects authUser into request context.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			me, err := s.authenticate(r)
			if errors.Is(err, errNoToken) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
				return
			}
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, me)))
		})
	}
}

var errNoToken = errors.New("no token")

// authenticate validates the bearer or cookie token and checks the user
// still exists.
func (s *Server) authenticate(r *http.Request) (*authUser, error) {
	tok := s.bearerOrCookie(r)
	if tok == "" {
		return nil, errNoToken
	}
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, errors.New("invalid token")
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return nil, errors.New("invalid token")
	}
	u, err := s.deps.Backend.UserByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return &authUser{ID: u.ID, Username: u.Username}, nil
}

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := "anon-" + uuid.NewString()
	s.setCookie(w, anonCookieName, id, s.deps.Now().Add(180*24*time.Hour), 0)
	// Later reads in this request see the new id.
	r.AddCookie(&http.Cookie{Name: anonCookieName, Value: id})
	return id
}

// ------------------------ users & passwords -------------------------------

// createUser hashes the password and inserts a new user.
func (s *Server) createUser(ctx context.Context, username, pw string) (store.User, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, err
	}
	u := store.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(h),
		CreatedAt:    s.deps.Now().UTC().Truncate(time.Second),
	}
	if err := s.deps.Backend.CreateUser(ctx, u); err != nil {
		return store.User{}, err
	}
	return u, nil
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// validateSignup enforces basic username/password rules.
func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8-100 chars")
	}
	return nil
}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 JWT carrying id and username.
func (s *Server) signJWT(id, username string) (string, time.Time, error) {
	now := s.deps.Now()
	exp := now.Add(s.cfg.JWTExpiry)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

// setCookie writes an HttpOnly cookie. maxAge < 0 deletes it.
func (s *Server) setCookie(w http.ResponseWriter, name, value string, exp time.Time, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if s.cfg.Production {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: sameSite,
		Expires:  exp,
		MaxAge:   maxAge,
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

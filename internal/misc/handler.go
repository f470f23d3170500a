package misc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/2beens/gymplanner/internal/auth"
	"github.com/2beens/gymplanner/internal/middleware"
	"github.com/2beens/gymplanner/internal/remote"
	"github.com/2beens/gymplanner/internal/telemetry/metrics"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
	"github.com/2beens/gymplanner/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=misc_test

type accountService interface {
	Register(ctx context.Context, creds auth.Credentials, createdAt time.Time) (*auth.Account, error)
	Login(ctx context.Context, creds auth.Credentials, createdAt time.Time) (*auth.Session, error)
	Logout(ctx context.Context, token string) (bool, error)
}

type sessionCache interface {
	Forget(token string)
}

type RegisterResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type Handler struct {
	versionInfo  string
	authService  accountService
	sessionCache sessionCache
}

func NewHandler(
	versionInfo string,
	authService accountService,
	sessionCache sessionCache,
) *Handler {
	return &Handler{
		versionInfo:  versionInfo,
		authService:  authService,
		sessionCache: sessionCache,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	metricsManager *metrics.Manager,
	loginRateLimitAllowedPerMin int,
) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET", "POST", "OPTIONS").Name("root")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")

	loginSubrouter := mainRouter.PathPrefix("/a").Subrouter()
	loginSubrouter.
		HandleFunc("/register", handler.handleRegister).
		Methods("POST", "OPTIONS").Name("register")
	loginSubrouter.
		HandleFunc("/login", handler.handleLogin).
		Methods("POST", "OPTIONS").Name("login")
	loginSubrouter.
		HandleFunc("/logout", handler.handleLogout).
		Methods("GET", "OPTIONS").Name("logout")

	// rate limit the account endpoints to prevent password guessing
	loginSubrouter.Use(middleware.RateLimit(rateLimiter, "login", loginRateLimitAllowedPerMin, metricsManager))
}

func (handler *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}

// readCredentials accepts a JSON body or a form.
func readCredentials(r *http.Request) (auth.Credentials, error) {
	var creds auth.Credentials
	if r.Header.Get("Content-Type") == pkg.ContentType.JSON {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			return creds, err
		}
		return creds, nil
	}

	if err := r.ParseForm(); err != nil {
		return creds, err
	}
	return auth.Credentials{
		Username: r.Form.Get("username"),
		Password: r.Form.Get("password"),
	}, nil
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.register")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	creds, err := readCredentials(r)
	if err != nil {
		log.Tracef("register, read credentials: %s", err)
		http.Error(w, "register failed", http.StatusBadRequest)
		return
	}

	account, err := handler.authService.Register(ctx, creds, time.Now())
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		http.Error(w, "error, invalid username or password", http.StatusBadRequest)
		return
	case errors.Is(err, auth.ErrUsernameTaken):
		span.SetStatus(codes.Error, "username-taken")
		http.Error(w, "error, username taken", http.StatusConflict)
		return
	case err != nil:
		log.Errorf("register %s failed: %s", creds.Username, err)
		span.RecordError(err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.String("user.id", account.UserID))
	log.Debugf("new account registered: %s", account.Username)
	pkg.SendJsonResponse(w, http.StatusCreated, RegisterResponse{
		UserID:   account.UserID,
		Username: account.Username,
	})
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.login")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	creds, err := readCredentials(r)
	if err != nil {
		log.Tracef("login, read credentials: %s", err)
		http.Error(w, "login failed", http.StatusBadRequest)
		return
	}

	if creds.Username == "" {
		http.Error(w, "error, username empty", http.StatusBadRequest)
		return
	}
	if creds.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	session, err := handler.authService.Login(ctx, creds, time.Now())
	if errors.Is(err, auth.ErrWrongPassword) {
		log.Tracef("failed login attempt for user: %s", creds.Username)
		span.SetStatus(codes.Error, "wrong-credentials")
		http.Error(w, "error, wrong credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		log.Errorf("login failed, create session error: %s", err)
		span.RecordError(err)
		http.Error(w, "login error", http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.String("user.id", session.UserID))
	log.Tracef("new login success: %s", session.Username)
	pkg.SendJsonResponse(w, http.StatusOK, remote.LoginResponse{
		Token:  session.Token,
		UserID: session.UserID,
	})
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.logout")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	authToken := r.Header.Get(remote.TokenHeader)
	if authToken == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.authService.Logout(ctx, authToken)
	if err != nil {
		log.Errorf("[failed logout] => %s: %s", r.URL.Path, err)
		http.Error(w, "no can do", http.StatusInternalServerError)
		return
	}
	if handler.sessionCache != nil {
		handler.sessionCache.Forget(authToken)
	}
	if !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	log.Trace("logout success")
	pkg.WriteTextResponseOK(w, "logged-out")
}

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/moodmeter/moodmeter/internal/auth"
	"github.com/moodmeter/moodmeter/internal/handler/dto"
	"github.com/moodmeter/moodmeter/internal/service"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool // set in production, where the site is served over HTTPS
}

// AccountHandler handles registration, login and the dashboard.
type AccountHandler struct {
	accounts *service.AccountService
	sessions *service.SessionService
	keys     *service.KeyService
	pages    *Pages
	cookie   CookieConfig
	logger   *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(
	accounts *service.AccountService,
	sessions *service.SessionService,
	keys *service.KeyService,
	pages *Pages,
	cookie CookieConfig,
	logger *slog.Logger,
) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		sessions: sessions,
		keys:     keys,
		pages:    pages,
		cookie:   cookie,
		logger:   logger,
	}
}

// RegisterPage handles GET /register.
func (h *AccountHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, PageRegister, PageData{})
}

// Register handles POST /register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid form body")
		return
	}

	input := service.RegisterInput{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	form := map[string]string{"username": input.Username, "email": input.Email}

	account, err := h.accounts.Register(r.Context(), input)
	if err != nil {
		status, body := registerError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("registration failed", "error", err)
		}
		h.fail(w, r, status, body, PageRegister, PageData{Form: form})
		return
	}

	h.logger.Info("account_registered", "account_id", account.ID, "username", account.Username)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// LoginPage handles GET /login.
func (h *AccountHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, PageLogin, PageData{})
}

// Login handles POST /login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid form body")
		return
	}

	username := r.PostFormValue("username")
	form := map[string]string{"username": username}

	account, err := h.accounts.Authenticate(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredential) || errors.Is(err, service.ErrAccountNotFound) {
			h.fail(w, r, http.StatusUnauthorized, dto.ErrorBody{
				Code:    "INVALID_CREDENTIALS",
				Message: "Invalid credentials",
			}, PageLogin, PageData{Form: form})
			return
		}
		h.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	sessionID, err := h.sessions.Start(r.Context(), account.ID)
	if err != nil {
		h.logger.Error("session start failed", "account_id", account.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	h.setSessionCookie(w, sessionID, h.sessions.TTL())
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout handles GET /logout.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if authCtx := auth.AuthFromContext(r.Context()); authCtx != nil {
		if err := h.sessions.End(r.Context(), authCtx.SessionID); err != nil {
			h.logger.Warn("session end failed", "account_id", authCtx.AccountID(), "error", err)
		}
	}
	h.setSessionCookie(w, "", -1)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Dashboard handles GET /dashboard.
func (h *AccountHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	account := auth.AccountFromContext(r.Context())

	usage, err := h.accounts.RecentUsage(r.Context(), account.ID, service.DashboardUsageLimit)
	if err != nil {
		h.logger.Error("list usage failed", "account_id", account.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	keys, err := h.keys.ListKeys(r.Context(), account.ID)
	if err != nil {
		h.logger.Error("list keys failed", "account_id", account.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	h.pages.Render(w, r, http.StatusOK, PageDashboard, PageData{
		Account: account,
		Usage:   dto.ToUsageResponses(usage),
		Keys:    dto.ToKeyResponses(keys),
	})
}

// fail answers a form error as an HTML page for browsers and as the error
// envelope for everyone else.
func (h *AccountHandler) fail(w http.ResponseWriter, r *http.Request, status int, body dto.ErrorBody, page string, data PageData) {
	if wantsHTML(r) && status != http.StatusInternalServerError {
		data.Error = body.Message
		data.Fields = body.Details
		h.pages.Render(w, r, status, page, data)
		return
	}
	writeErrorDetails(w, status, body.Code, body.Message, body.Details)
}

func (h *AccountHandler) setSessionCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	} else {
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)
}

func registerError(err error) (int, dto.ErrorBody) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, dto.ErrorBody{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid registration details",
			Details: verr.Fields,
		}
	case errors.Is(err, service.ErrDuplicateUsername):
		return http.StatusConflict, dto.ErrorBody{Code: "USERNAME_EXISTS", Message: "Username already exists"}
	case errors.Is(err, service.ErrDuplicateEmail):
		return http.StatusConflict, dto.ErrorBody{Code: "EMAIL_EXISTS", Message: "Email already exists"}
	default:
		return http.StatusInternalServerError, dto.ErrorBody{Code: "INTERNAL_ERROR", Message: "An internal error occurred"}
	}
}

package api

import (
	"errors"
	"log/slog"
	"net/http"

	"vidtube/cmd/identity"
	"vidtube/cmd/internal/auth/session"
	"vidtube/cmd/internal/media"
)

// Handler wires HTTP user endpoints to the session service.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	sessions *session.Service
}

// NewHandler constructs the user API handler.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if sessions == nil {
		return nil, errors.New("api: nil session service")
	}
	return &Handler{log: log, cfg: cfg, sessions: sessions}, nil
}

// Register wires user routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc(h.cfg.route("/register"), h.handleRegister)
	mux.HandleFunc(h.cfg.route("/login"), h.handleLogin)
	mux.HandleFunc(h.cfg.route("/refresh"), h.handleRefresh)
	mux.HandleFunc(h.cfg.route("/logout"), h.RequireUser(h.handleLogout))
	mux.HandleFunc(h.cfg.route("/change-password"), h.RequireUser(h.handleChangePassword))
	mux.HandleFunc(h.cfg.route("/me"), h.RequireUser(h.handleMe))
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxMultipartBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxMultipartBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	avatarPath, err := h.saveUploadedImage(r, "avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer removeIfPresent(avatarPath)

	coverPath, err := h.saveUploadedImage(r, "coverImage")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer removeIfPresent(coverPath)

	user, err := h.sessions.Register(r.Context(), session.RegisterInput{
		Username:   r.FormValue("username"),
		Email:      r.FormValue("email"),
		FullName:   r.FormValue("fullName"),
		Password:   r.FormValue("password"),
		AvatarPath: avatarPath,
		CoverPath:  coverPath,
	})
	if err != nil {
		h.writeServiceError(w, "auth.register", err)
		return
	}

	h.log.Info("auth.register.ok", "user_id", user.ID)
	writeData(w, http.StatusCreated, "user registered successfully", toUserResponse(user))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, pair, err := h.sessions.Login(r.Context(), req.identifier(), req.Password)
	if err != nil {
		h.writeServiceError(w, "auth.login", err)
		return
	}

	h.setSessionCookies(w, pair)
	h.log.Info("auth.login.ok", "user_id", user.ID)
	writeData(w, http.StatusOK, "logged in successfully", loginResponse{
		User:   toUserResponse(user),
		Tokens: toTokenResponse(pair),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if err := decodeOptionalJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	presented, ok := h.tokenFromRequest(r, h.cfg.RefreshCookieName, req.RefreshToken)
	if !ok {
		writeError(w, http.StatusUnauthorized, "refresh token is required")
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), presented)
	if err != nil {
		h.writeServiceError(w, "auth.refresh", err)
		return
	}

	h.setSessionCookies(w, pair)
	h.log.Info("auth.refresh.ok")
	writeData(w, http.StatusOK, "tokens refreshed successfully", toTokenResponse(pair))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if err := h.sessions.Logout(r.Context(), user.ID); err != nil {
		h.writeServiceError(w, "auth.logout", err)
		return
	}

	h.clearSessionCookies(w)
	h.log.Info("auth.logout.ok", "user_id", user.ID)
	writeData(w, http.StatusOK, "logged out successfully", nil)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.sessions.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		h.writeServiceError(w, "auth.change_password", err)
		return
	}

	h.log.Info("auth.change_password.ok", "user_id", user.ID)
	writeData(w, http.StatusOK, "password changed successfully", nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	writeData(w, http.StatusOK, "current user fetched successfully", toUserResponse(user))
}

// ---- helpers ----

func toTokenResponse(pair session.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

// writeServiceError maps service errors to the HTTP taxonomy. Internal
// errors are logged with the operation name but never leak details to the
// client.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case session.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case identity.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case identity.IsConflict(err):
		writeError(w, http.StatusConflict, "user with this username or email already exists")
	case errors.Is(err, session.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, session.ErrInvalidToken), errors.Is(err, session.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "refresh token is expired or used")
	case identity.IsNotFound(err):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, media.ErrUpload), errors.Is(err, media.ErrNoFile):
		h.log.Error(op+".upload_fail", "err", err)
		writeError(w, http.StatusInternalServerError, "image upload failed")
	default:
		h.log.Error(op+".fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/obralink/obralink/internal/common"
	"github.com/obralink/obralink/internal/server/auth"
)

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	CompanyName string `json:"companyName"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID      string `json:"userId"`
	CompanyID   string `json:"companyId"`
	Role        string `json:"role"`
	AccessToken string `json:"accessToken"`
}

func toAuthResponse(res *auth.Result) authResponse {
	return authResponse{
		UserID:      res.UserID,
		CompanyID:   res.CompanyID,
		Role:        res.Role,
		AccessToken: res.AccessToken,
	}
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	var body registerRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	res, err := r.auth.Register(req.Context(), body.Username, body.Password, body.CompanyName)
	if err != nil {
		if errors.Is(err, common.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		r.log.Error(req.Context(), "registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	res, err := r.auth.Login(req.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		r.log.Error(req.Context(), "login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

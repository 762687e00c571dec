package api

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"stockflow/pkg/auth"
	"stockflow/pkg/otel"
)

// signupRequest is a new account.
type signupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
}

// loginRequest represents login credentials. The username is the email.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// signupHandler creates an account and returns a token for it.
// @Summary Sign up
// @Description Anyone may create a SELLER. Other roles require an admin token, except for the first account.
// @Tags auth
// @Accept json
// @Produce json
// @Param account body signupRequest true "Account"
// @Success 201 {object} auth.Result
// @Failure 403 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /api/auth/signup [post]
func (s *Server) signupHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "signupHandler")
	defer span.End()

	var req signupRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var caller *auth.Identity
	if id, ok := identityFrom(ctx); ok {
		caller = &id
	}
	res, err := s.auth.Signup(ctx, auth.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	}, caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("user.id", res.UserID))
	writeJSON(w, http.StatusCreated, res)
}

// loginHandler checks credentials and issues a token.
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param creds body loginRequest true "Credentials"
// @Success 200 {object} auth.Result
// @Failure 401 {object} errorResponse
// @Router /api/auth/login [post]
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "loginHandler")
	defer span.End()

	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// logoutHandler revokes the bearer token until it expires.
// @Summary Logout
// @Tags auth
// @Success 204
// @Security ApiKeyAuth
// @Router /api/auth/logout [post]
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "logoutHandler")
	defer span.End()

	if err := s.auth.Logout(ctx, bearerToken(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

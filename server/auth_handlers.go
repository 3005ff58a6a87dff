package server

import (
	"strings"

	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-jobportal/middleware/jwtware"
	"github.com/goliatone/go-router"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// payload accepts the original shape where username carries the email.
func (r registerRequest) payload() auth.RegisterPayload {
	p := auth.RegisterPayload{
		Username: r.Username,
		Email:    r.Email,
		Password: r.Password,
		Role:     r.Role,
	}
	if strings.TrimSpace(p.Email) == "" && strings.Contains(p.Username, "@") {
		p.Email, p.Username = p.Username, ""
	}
	return p
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type selectRoleRequest struct {
	Role string `json:"role"`
}

// MessageResponse is returned by endpoints without a resource body.
type MessageResponse struct {
	Message string `json:"message"`
}

func (s *Server) register(ctx router.Context) error {
	var req registerRequest
	if err := ctx.Bind(&req); err != nil {
		return auth.ValidationError(err)
	}

	if _, err := s.deps.Authenticator.Register(ctx.Context(), req.payload()); err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, MessageResponse{Message: "User registered successfully"})
}

func (s *Server) login(ctx router.Context) error {
	var req loginRequest
	if err := ctx.Bind(&req); err != nil {
		return auth.ValidationError(err)
	}
	if req.Email == "" {
		req.Email = req.Username
	}

	token, err := s.deps.Authenticator.Login(ctx.Context(), auth.LoginPayload{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, token)
}

func (s *Server) rolePrompt(ctx router.Context) error {
	caller := jwtware.CallerFrom(ctx)
	return ctx.JSON(router.StatusOK, s.deps.RoleSelection.Prompt(caller.Email))
}

func (s *Server) selectRole(ctx router.Context) error {
	var req selectRoleRequest
	if err := ctx.Bind(&req); err != nil {
		return auth.ValidationError(err)
	}

	token, err := s.deps.RoleSelection.Select(ctx.Context(), jwtware.CallerFrom(ctx).Email, req.Role)
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, token)
}

func (s *Server) roles(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, s.deps.RoleSelection.Roles())
}

func (s *Server) userRole(ctx router.Context) error {
	status, err := s.deps.RoleSelection.Status(ctx.Context(), jwtware.CallerFrom(ctx).Email)
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, status)
}

package http

import (
	"errors"
	"net/http"
	"strings"

	"registrar/internal/apperr"
	"registrar/internal/crypto"
	"registrar/internal/model"
	"registrar/internal/repository"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string              `json:"token"`
	Admin model.Administrator `json:"admin"`
}

type adminResponse struct {
	Admin model.Administrator `json:"admin"`
}

func (s *Server) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, error) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return req, err
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validate.Struct(req); err != nil {
		return req, apperr.Validation("Username and password are required.")
	}
	return req, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) error {
	req, err := s.decodeCredentials(w, r)
	if err != nil {
		return err
	}

	invalid := apperr.Unauthorized("Invalid username or password.")
	admin, err := s.stores.Admins.GetAdministratorByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid
		}
		return err
	}
	if err := crypto.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		return invalid
	}

	token, err := s.tokens.Issue(admin)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Admin: admin})
	return nil
}

// handleRegister lets anyone create the first administrator. Once one exists a
// valid token is required.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) error {
	req, err := s.decodeCredentials(w, r)
	if err != nil {
		return err
	}

	count, err := s.stores.Admins.CountAdministrators(r.Context())
	if err != nil {
		return err
	}
	bootstrap := count == 0
	if !bootstrap {
		if _, err := s.authenticate(r); err != nil {
			return err
		}
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return err
	}

	var admin model.Administrator
	if bootstrap {
		admin, err = s.stores.Admins.CreateFirstAdministrator(r.Context(), req.Username, hash)
		if errors.Is(err, repository.ErrRegistrationClosed) {
			if _, authErr := s.authenticate(r); authErr != nil {
				return authErr
			}
			admin, err = s.stores.Admins.CreateAdministrator(r.Context(), req.Username, hash)
		}
	} else {
		admin, err = s.stores.Admins.CreateAdministrator(r.Context(), req.Username, hash)
	}
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return apperr.Conflict("Username already exists.")
		}
		return err
	}

	writeJSON(w, http.StatusCreated, adminResponse{Admin: admin})
	return nil
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) error {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		return apperr.Unauthorized("Authorization token is required.")
	}
	admin, err := s.stores.Admins.GetAdministrator(r.Context(), claims.AdminID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Administrator not found.")
		}
		return err
	}
	writeJSON(w, http.StatusOK, adminResponse{Admin: admin})
	return nil
}

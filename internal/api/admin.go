package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/flowforge/internal/api/auth"
	"github.com/flowforge/internal/logging"
	"github.com/flowforge/internal/prompts"
	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	Error     string     `json:"error,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// adminPromptEntry describes one prompt type in the admin catalog.
type adminPromptEntry struct {
	DisplayName        string             `json:"displayName"`
	Type               prompts.PromptType `json:"type"`
	Filename           string             `json:"filename"`
	Versions           prompts.PromptSet  `json:"versions"`
	AvailableVariables []string           `json:"availableVariables"`
	ActiveVersion      int                `json:"activeVersion,omitempty"`
	EstimatedTokens    int                `json:"estimatedTokens"`
	Warnings           []string           `json:"warnings,omitempty"`
	Error              string             `json:"error,omitempty"`
}

type addVersionRequest struct {
	PromptType        string `json:"promptType"`
	Content           string `json:"content"`
	ChangeDescription string `json:"changeDescription"`
}

type addVersionResponse struct {
	Success    bool                  `json:"success"`
	NewVersion prompts.PromptVersion `json:"newVersion"`
	Warnings   []string              `json:"warnings,omitempty"`
}

type activateVersionRequest struct {
	PromptType string `json:"promptType"`
	Version    int    `json:"version"`
}

type activateVersionResponse struct {
	Success       bool                  `json:"success"`
	ActiveVersion prompts.PromptVersion `json:"activeVersion"`
}

// POST /api/admin/login
func (s *Server) adminLogin(c echo.Context) error {
	if s.cfg.Admin.Password == "" {
		logging.FromContext(c).Error().Msg("admin.password is not set")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Admin authentication not configured."})
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, loginResponse{Success: false, Error: "Invalid request body"})
	}
	if !auth.ComparePassword(s.cfg.Admin.Password, req.Password) {
		logging.FromContext(c).Warn().Str("remote_ip", c.RealIP()).Msg("Failed admin login")
		return c.JSON(http.StatusUnauthorized, loginResponse{Success: false, Error: "Invalid password"})
	}

	token, err := s.tokens.CreateToken()
	if err != nil {
		logging.FromContext(c).Error().Err(err).Msg("Failed to issue admin token")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create session."})
	}
	return c.JSON(http.StatusOK, loginResponse{
		Success:   true,
		Message:   "Login successful",
		Token:     token.AccessToken,
		ExpiresAt: &token.ExpiresAt,
	})
}

// GET /api/admin/prompts
func (s *Server) listPrompts(c echo.Context) error {
	response := make(map[prompts.PromptType]adminPromptEntry, len(prompts.AllTypes()))

	for _, t := range prompts.AllTypes() {
		entry := adminPromptEntry{
			DisplayName:        t.DisplayName(),
			Type:               t,
			Filename:           t.Filename(),
			Versions:           prompts.PromptSet{},
			AvailableVariables: t.Tokens(),
		}

		set, err := s.store.ReadSet(t)
		switch {
		case errors.Is(err, prompts.ErrCorruptSet):
			entry.Error = "Prompt file could not be parsed; fix or replace " + t.Filename() + "."
			response[t] = entry
			continue
		case err != nil:
			logging.FromContext(c).Error().Err(err).Str("type", string(t)).Msg("Error fetching prompts for admin")
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load prompts."})
		}
		if set != nil {
			entry.Versions = set
		}

		if active, fallback, ok := set.Active(); ok {
			entry.ActiveVersion = active.Version
			entry.EstimatedTokens = s.estimator.Estimate(active.Content)
			if fallback {
				entry.Warnings = append(entry.Warnings, "No version is marked active; the latest version is used.")
			}
			entry.Warnings = append(entry.Warnings, placeholderWarnings(t, active.Content)...)
		}
		response[t] = entry
	}

	return c.JSON(http.StatusOK, response)
}

// POST /api/admin/add-prompt-version
func (s *Server) addPromptVersion(c echo.Context) error {
	var req addVersionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
	}

	t, err := prompts.ParseType(req.PromptType)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid prompt type specified."})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Prompt content cannot be empty."})
	}
	if strings.TrimSpace(req.ChangeDescription) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Change description cannot be empty."})
	}

	v, err := s.store.AddVersion(t, req.Content, req.ChangeDescription)
	if err != nil {
		logging.FromContext(c).Error().Err(err).Str("type", string(t)).Msg("Error adding new prompt version")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to add new prompt version.", Details: err.Error()})
	}

	logging.FromContext(c).Info().Str("type", string(t)).Int("version", v.Version).Msg("Added prompt version")
	return c.JSON(http.StatusOK, addVersionResponse{
		Success:    true,
		NewVersion: v,
		Warnings:   placeholderWarnings(t, v.Content),
	})
}

// POST /api/admin/activate-prompt-version
func (s *Server) activatePromptVersion(c echo.Context) error {
	var req activateVersionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
	}

	t, err := prompts.ParseType(req.PromptType)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid prompt type specified."})
	}
	if req.Version <= 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Version must be a positive integer."})
	}

	v, err := s.store.Activate(t, req.Version)
	switch {
	case errors.Is(err, prompts.ErrVersionNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Prompt version not found."})
	case err != nil:
		logging.FromContext(c).Error().Err(err).Str("type", string(t)).Msg("Error activating prompt version")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to activate prompt version.", Details: err.Error()})
	}

	logging.FromContext(c).Info().Str("type", string(t)).Int("version", v.Version).Msg("Activated prompt version")
	return c.JSON(http.StatusOK, activateVersionResponse{Success: true, ActiveVersion: v})
}

// placeholderWarnings lists placeholders in content that the type never fills;
// FillPrompt leaves them as written.
func placeholderWarnings(t prompts.PromptType, content string) []string {
	var warnings []string
	for _, name := range prompts.Undeclared(t, content) {
		warnings = append(warnings, prompts.Token(name)+" is not a known variable and will be sent to the model unchanged.")
	}
	return warnings
}

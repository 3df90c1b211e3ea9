package api

import (
	"net/http"

	"github.com/flowforge/internal/generator"
	"github.com/flowforge/internal/tools"
	"github.com/labstack/echo/v4"
)

type validateRequest struct {
	UserPrompt interface{} `json:"userPrompt"`
}

type guideResponse struct {
	InstructionalGuideMarkdown string `json:"instructionalGuideMarkdown"`
}

// GET /api/options
func (s *Server) getOptions(c echo.Context) error {
	return c.JSON(http.StatusOK, tools.Options(s.generator.Models()))
}

// POST /api/validate-prompt
func (s *Server) validatePrompt(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: validateMessages.badJSON})
	}
	// non-string prompts are reported like empty ones
	prompt, _ := req.UserPrompt.(string)

	result, err := s.generator.Validate(c.Request().Context(), prompt)
	if err != nil {
		return respondLLMError(c, validateMessages, err)
	}
	return c.JSON(http.StatusOK, result)
}

// POST /api/generate-raw
func (s *Server) generateRaw(c echo.Context) error {
	var req generator.GenerateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: generateMessages.badJSON})
	}

	gen, err := s.generator.Generate(c.Request().Context(), req)
	if err != nil {
		return respondLLMError(c, generateMessages, err)
	}
	return c.JSON(http.StatusOK, gen)
}

// POST /api/generate-guide
func (s *Server) generateGuide(c echo.Context) error {
	var req generator.GuideRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: guideMessages.badJSON})
	}

	guide, err := s.generator.Guide(c.Request().Context(), req)
	if err != nil {
		return respondLLMError(c, guideMessages, err)
	}
	return c.JSON(http.StatusOK, guideResponse{InstructionalGuideMarkdown: guide})
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/flowforge/internal/generator"
	"github.com/flowforge/internal/llm"
	"github.com/flowforge/internal/logging"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is a standard error response
type ErrorResponse struct {
	Error     string      `json:"error"`
	Details   interface{} `json:"details,omitempty"`
	RawOutput string      `json:"rawOutput,omitempty"`
}

// routeMessages holds the client-facing error texts of one LLM-backed route.
type routeMessages struct {
	noKey         string
	badJSON       string
	promptMissing string
	upstream      string // followed by ": <status text>"
	empty         string
	notJSON       string
	badShape      string
	unexpected    string
}

var validateMessages = routeMessages{
	noKey:         "API key not configured. Please contact support.",
	badJSON:       "Invalid request: Malformed JSON body.",
	promptMissing: "Could not load validation instructions. Please contact support.",
	upstream:      "Failed to fetch from LLM for validation",
	empty:         "Unexpected response structure from LLM during validation.",
	notJSON:       "LLM response for validation was not valid JSON.",
	badShape:      "LLM response for validation was not in the expected format.",
	unexpected:    "An unexpected error occurred during prompt validation.",
}

var generateMessages = routeMessages{
	noKey:         "API key not configured. Please contact support.",
	badJSON:       "Invalid JSON body for raw generation.",
	promptMissing: "Could not load prompt instructions. Please contact support.",
	upstream:      "Failed to fetch from LLM",
	empty:         "Unexpected response structure from LLM.",
	unexpected:    "An unexpected error occurred.",
}

var guideMessages = routeMessages{
	noKey:         "API key not configured.",
	badJSON:       "Invalid JSON body for guide generation.",
	promptMissing: "Guide generation instructions not configured. Please contact support.",
	upstream:      "LLM guide generation request failed",
	empty:         "LLM response for guide was empty or not in string format.",
	unexpected:    "Unexpected server error during guide generation.",
}

// respondLLMError maps a generator error onto a status code and message.
func respondLLMError(c echo.Context, msgs routeMessages, err error) error {
	logger := logging.FromContext(c)

	var (
		validationErr *generator.ValidationError
		upstreamErr   *llm.UpstreamError
		malformedErr  *generator.MalformedOutputError
	)
	switch {
	case errors.As(err, &validationErr):
		resp := ErrorResponse{Error: validationErr.Message}
		if len(validationErr.Issues) > 0 {
			resp.Details = validationErr.Issues
		}
		return c.JSON(http.StatusBadRequest, resp)

	case errors.Is(err, generator.ErrNotConfigured):
		logger.Error().Msg("LLM API key is not set")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgs.noKey})

	case errors.Is(err, generator.ErrPromptNotConfigured):
		logger.Error().Err(err).Msg("No active prompt")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgs.promptMissing})

	case errors.As(err, &upstreamErr):
		status := upstreamErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		logger.Error().Err(err).Int("status", upstreamErr.StatusCode).Msg("LLM API error")
		return c.JSON(status, ErrorResponse{
			Error:   fmt.Sprintf("%s: %s", msgs.upstream, upstreamErr.StatusText()),
			Details: upstreamErr.Message,
		})

	case errors.As(err, &malformedErr):
		logger.Error().Err(err).Msg("Malformed LLM output")
		if errors.Is(malformedErr, llm.ErrNotJSON) && msgs.notJSON != "" {
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgs.notJSON, RawOutput: malformedErr.Raw})
		}
		msg := msgs.badShape
		if msg == "" {
			msg = msgs.empty
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg, Details: malformedErr.Detail})

	case errors.Is(err, llm.ErrEmptyResponse), errors.Is(err, llm.ErrMalformedResponse):
		logger.Error().Err(err).Msg("Unusable LLM response")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgs.empty})

	case errors.Is(err, context.DeadlineExceeded):
		logger.Error().Err(err).Msg("LLM request timed out")
		return c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "LLM request timed out."})
	}

	logger.Error().Err(err).Msg("Request failed")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgs.unexpected})
}

// handleError renders errors that escape handlers, such as echo.HTTPError
// from routing or middleware, in the same {"error": ...} shape.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		logging.FromContext(c).Error().Err(err).Msg("Unhandled error")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Error: msg})
	}
	if err != nil {
		logging.FromContext(c).Error().Err(err).Msg("Failed to write error response")
	}
}

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	familydomain "github.com/revitfy/revitfy/internal/family/domain"
	identitydomain "github.com/revitfy/revitfy/internal/identity/domain"
	playlistdomain "github.com/revitfy/revitfy/internal/playlist/domain"
	projectdomain "github.com/revitfy/revitfy/internal/project/domain"
	reactiondomain "github.com/revitfy/revitfy/internal/reaction/domain"
	"github.com/revitfy/revitfy/internal/storage"
	usagedomain "github.com/revitfy/revitfy/internal/usage/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identitydomain.ErrInvalidSession),
		errors.Is(err, identitydomain.ErrSessionExpired):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, familydomain.ErrFamilyExists),
		errors.Is(err, playlistdomain.ErrPlaylistExists),
		errors.Is(err, playlistdomain.ErrAlreadyMember):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case errors.Is(err, familydomain.ErrInvalidFamilyID),
		errors.Is(err, familydomain.ErrInvalidFamilyName),
		errors.Is(err, familydomain.ErrInvalidStorageKey):
		return true
	case errors.Is(err, playlistdomain.ErrInvalidPlaylistID),
		errors.Is(err, playlistdomain.ErrInvalidPlaylistName),
		errors.Is(err, playlistdomain.ErrInvalidUser):
		return true
	case errors.Is(err, reactiondomain.ErrInvalidEntityType),
		errors.Is(err, reactiondomain.ErrInvalidEntity),
		errors.Is(err, reactiondomain.ErrInvalidUser),
		errors.Is(err, reactiondomain.ErrInvalidReaction):
		return true
	case errors.Is(err, usagedomain.ErrInvalidFamily),
		errors.Is(err, usagedomain.ErrInvalidFamilyType),
		errors.Is(err, usagedomain.ErrInvalidProject),
		errors.Is(err, usagedomain.ErrInvalidCount),
		errors.Is(err, usagedomain.ErrInvalidSnapshot):
		return true
	case errors.Is(err, projectdomain.ErrInvalidProjectID),
		errors.Is(err, projectdomain.ErrInvalidProjectName):
		return true
	case errors.Is(err, storage.ErrInvalidKey):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, familydomain.ErrFamilyNotFound),
		errors.Is(err, playlistdomain.ErrPlaylistNotFound),
		errors.Is(err, playlistdomain.ErrFamilyNotFound),
		errors.Is(err, playlistdomain.ErrNotMember),
		errors.Is(err, reactiondomain.ErrEntityNotFound),
		errors.Is(err, usagedomain.ErrFamilyNotFound),
		errors.Is(err, usagedomain.ErrTypeNotFound),
		errors.Is(err, usagedomain.ErrProjectNotFound),
		errors.Is(err, projectdomain.ErrProjectNotFound),
		errors.Is(err, identitydomain.ErrUserNotFound),
		errors.Is(err, storage.ErrObjectNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

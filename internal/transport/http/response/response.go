package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragchat/internal/ai"
	"ragchat/internal/app"
)

const (
	CodeOK                 = 0
	CodeBadRequest         = 40000
	CodeUsernameExists     = 40001
	CodeEmailExists        = 40002
	CodeUnsupportedFormat  = 40003
	CodeInvalidTemplate    = 40004
	CodeUnauthorized       = 40100
	CodeInvalidCredentials = 40101
	CodeNotFound           = 40400
	CodeTooLarge           = 41300
	CodeExtractionFailed   = 42201
	CodeExtractionEmpty    = 42202
	CodeTooManyRequests    = 42900
	CodeInternalServer     = 50000
	CodeStore              = 50001
	CodeGeneration         = 50200
	CodeTurnNotPersisted   = 50201
	CodeUnavailable        = 50300
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

func ErrorWithData(c *gin.Context, httpStatus, code int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Status maps a service error to an HTTP status, a response code and a
// short message. Causes are never echoed except for validation failures.
func Status(err error) (int, int, string) {
	switch {
	case errors.Is(err, app.ErrUsernameExists):
		return http.StatusBadRequest, CodeUsernameExists, app.ErrUsernameExists.Error()
	case errors.Is(err, app.ErrEmailExists):
		return http.StatusBadRequest, CodeEmailExists, app.ErrEmailExists.Error()
	case errors.Is(err, app.ErrInvalidCredential):
		return http.StatusUnauthorized, CodeInvalidCredentials, app.ErrInvalidCredential.Error()
	case errors.Is(err, app.ErrValidation):
		return http.StatusBadRequest, CodeBadRequest, validationMessage(err)
	case errors.Is(err, app.ErrUnsupportedFormat):
		return http.StatusBadRequest, CodeUnsupportedFormat, "unsupported document format"
	case errors.Is(err, app.ErrTemplate):
		return http.StatusBadRequest, CodeInvalidTemplate, "malformed prompt template"
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound, CodeNotFound, "not found"
	case errors.Is(err, app.ErrExtractionEmpty):
		return http.StatusUnprocessableEntity, CodeExtractionEmpty, "no text could be extracted"
	case errors.Is(err, app.ErrExtraction):
		return http.StatusUnprocessableEntity, CodeExtractionFailed, "document could not be read"
	case errors.Is(err, app.ErrTurnNotPersisted):
		return http.StatusBadGateway, CodeTurnNotPersisted, "answer generated but not saved"
	case errors.Is(err, app.ErrStore):
		return http.StatusInternalServerError, CodeStore, "storage failure"
	case errors.Is(err, ai.ErrUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable, "model backend unavailable"
	case errors.Is(err, app.ErrGeneration):
		return http.StatusBadGateway, CodeGeneration, "generation failed"
	default:
		return http.StatusInternalServerError, CodeInternalServer, "internal server error"
	}
}

// AppError writes the mapped error response for err.
func AppError(c *gin.Context, err error) {
	status, code, msg := Status(err)
	Error(c, status, code, msg)
}

func validationMessage(err error) string {
	var e *app.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return app.ErrValidation.Error()
}

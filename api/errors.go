package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/maestro_backend/config"
	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/models/reports"
	"github.com/mmdatafocus/maestro_backend/session"
	"github.com/mmdatafocus/maestro_backend/utils"
)

type errorBody struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	ID     string            `json:"id,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusOf maps an error to its HTTP status and response body. Unknown
// errors become a 500 without leaking their text.
func statusOf(err error) (int, errorBody) {
	var coreErr *consensus.Error
	if errors.As(err, &coreErr) {
		body := errorBody{Error: coreErr.Msg, Kind: string(coreErr.Kind), ID: coreErr.ID}
		switch coreErr.Kind {
		case consensus.KindValidation:
			return http.StatusBadRequest, body
		case consensus.KindNotFound:
			return http.StatusNotFound, body
		case consensus.KindInvalidState:
			return http.StatusConflict, body
		}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, errorBody{
			Error:  "invalid request",
			Kind:   string(consensus.KindValidation),
			Fields: utils.ProcessValidationErrors(err),
		}
	}

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error(), Kind: string(consensus.KindNotFound)}
	case errors.Is(err, utils.ErrorLockNotObtained):
		return http.StatusConflict, errorBody{Error: err.Error(), Kind: string(consensus.KindInvalidState)}
	case errors.Is(err, utils.ErrorInvalidCredentials),
		errors.Is(err, utils.ErrorUnauthorized),
		errors.Is(err, session.ErrSessionNotFound):
		return http.StatusUnauthorized, errorBody{Error: err.Error()}
	case errors.Is(err, utils.ErrorForbidden):
		return http.StatusForbidden, errorBody{Error: err.Error()}
	case errors.Is(err, reports.ErrUnsupportedFormat), errors.Is(err, reports.ErrEmptyFile):
		return http.StatusBadRequest, errorBody{Error: err.Error(), Kind: string(consensus.KindValidation)}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal server error"}
}

func (h *Handler) writeError(c *gin.Context, funcName string, data any, err error) {
	status, body := statusOf(err)
	if status == http.StatusInternalServerError {
		config.LogError(h.logger, "api", funcName, c.FullPath(), data, err)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: msg, Kind: string(consensus.KindValidation)})
}

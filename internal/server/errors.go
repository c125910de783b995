package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/covera-health/covera/internal/model"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindAmbiguous, model.KindUnsupported:
		return http.StatusUnprocessableEntity
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindTimeout:
		return http.StatusGatewayTimeout
	case model.KindPartialIngestion:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders any error as the structured {kind, message, detail}
// body clients branch on. Untyped errors surface as internal_error without
// leaking their text.
func writeError(c *gin.Context, err error) {
	var se *model.Error
	if !errors.As(err, &se) {
		se = model.NewError(model.KindInternal, "internal error")
	}
	c.JSON(statusFor(se.Kind), se)
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/service"
)

var validatorsOnce sync.Once

// registerValidators reports json field names in binding errors and adds
// the payment_status tag.
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("payment_status", func(fl validator.FieldLevel) bool {
			return domain.PaymentStatus(fl.Field().String()).Valid()
		})
	})
}

var bindMessages = map[string]string{
	"required":       "This field is required.",
	"uuid":           "Must be a valid UUID.",
	"gt":             "Ensure this value is greater than 0.",
	"payment_status": service.MsgPaymentStatus,
}

// bindError turns a ShouldBindJSON failure into the field error body.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg, ok := bindMessages[fe.Tag()]
		if !ok {
			msg = "Invalid value."
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg, "field": fe.Field()})
		return
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid value.", "field": typeErr.Field})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
}

func mapErrorToStatus(err error) int {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	// сбой транзакции оформления всегда ошибка сервера, что бы ни лежало внутри
	case errors.Is(err, service.ErrTransactionFailed):
		return http.StatusInternalServerError
	case errors.Is(err, service.ErrCustomerNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrProtected):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError отдаёт ошибку клиенту. Ошибки сервера логируются, их детали
// клиенту не передаются.
func (s *Server) writeError(c *gin.Context, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
		return
	}

	status := mapErrorToStatus(err)
	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrTransactionFailed):
		msg = "The order could not be placed. Please retry."
	case errors.Is(err, repository.ErrNotFound):
		msg = "Not found."
	case status >= http.StatusInternalServerError:
		msg = "internal error"
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": msg})
}

package services

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/karigarlink/rfq-service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("money", validMoney)
	return v
}

// validMoney проверяет, что сумма после округления до копеек лежит в допустимых границах.
func validMoney(fl validator.FieldLevel) bool {
	f := fl.Field()
	if !f.CanFloat() {
		return false
	}
	cents := math.Round(f.Float() * 100)
	return cents >= models.MinBidAmount*100 && cents <= models.MaxBidAmount*100
}

// validateRequest проверяет теги validate и собирает ValidationError со списком полей.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return models.NewValidationError("invalid request")
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describeFieldError(fe))
	}
	return models.NewValidationError("invalid request: " + strings.Join(problems, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "money":
		return fmt.Sprintf("%s must be between %.2f and %.2f", fe.Field(), models.MinBidAmount, models.MaxBidAmount)
	case "uuid":
		return fe.Field() + " must be a valid id"
	default:
		return fe.Field() + " is invalid"
	}
}

// RequireRole проверяет роль пользователя. Проверка выполняется в каждой операции,
// а не в маршрутизаторе, поэтому она действует и для вызовов не через HTTP.
func RequireRole(p models.Principal, role models.Role) error {
	if p.Role != role {
		return models.NewAuthorizationError(fmt.Sprintf("requires %s role", role))
	}
	return nil
}

// validID сообщает, похожа ли строка на идентификатор записи.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// rfqLabel возвращает короткое название RFQ для текстов уведомлений.
func rfqLabel(rfq *models.RFQ) string {
	label := rfq.Title
	if label == "" {
		label = rfq.Description
	}
	if r := []rune(label); len(r) > 60 {
		label = string(r[:57]) + "..."
	}
	return label
}

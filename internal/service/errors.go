package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrCustomerNotFound у пользователя нет записи покупателя; оформление её не создаёт.
	ErrCustomerNotFound = errors.New("no customer record for the authenticated user")
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartEmpty        = errors.New("cart is empty")
	ErrProductNotFound  = errors.New("product not found")
	// ErrTransactionFailed оборачивает ошибки хранилища внутри транзакции оформления.
	// Ничего не зафиксировано, запрос можно повторить.
	ErrTransactionFailed = errors.New("order transaction failed")
)

const (
	MsgCartNotFound    = "No cart with the given id was found"
	MsgCartEmpty       = "The cart is empty"
	MsgProductNotFound = "No product with given ID"
	MsgQuantityMin     = "Ensure this value is greater than or equal to 1."
	MsgQuantityMax     = "Ensure this value is less than or equal to 32767."
	MsgPaymentStatus   = "Must be one of pending, complete, failed."
	MsgBlank           = "This field may not be blank."
)

// ValidationError ошибка клиента, привязанная к полю запроса
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidInput
	}
	return e.Err
}

func cartNotFound() *ValidationError {
	return &ValidationError{Field: "cart_id", Message: MsgCartNotFound, Err: ErrCartNotFound}
}

func cartEmpty() *ValidationError {
	return &ValidationError{Field: "cart_id", Message: MsgCartEmpty, Err: ErrCartEmpty}
}

func quantityTooLarge() *ValidationError {
	return &ValidationError{Field: "quantity", Message: MsgQuantityMax, Err: ErrInvalidInput}
}

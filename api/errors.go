package api

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/blackbird014/pooliverse-swapper/exchange"
	"github.com/blackbird014/pooliverse-swapper/factory"
	"github.com/blackbird014/pooliverse-swapper/pair"
	"github.com/blackbird014/pooliverse-swapper/router"
	"github.com/blackbird014/pooliverse-swapper/router/calculator"
	"github.com/blackbird014/pooliverse-swapper/token"
)

// ErrInvalidBody indicates that the request body could not be parsed into
// the expected structure.
var ErrInvalidBody = fiber.NewError(fiber.StatusBadRequest, "invalid request body")

// ErrInvalidQueryParameters indicates that the request query string could
// not be parsed into the expected structure.
var ErrInvalidQueryParameters = fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")

// ErrAmountRequired is returned when an amount parameter is missing.
var ErrAmountRequired = fiber.NewError(fiber.StatusBadRequest, "amount is required")

// ErrInvalidAmountFormat is returned when an amount cannot be parsed as a
// base-10 integer.
var ErrInvalidAmountFormat = fiber.NewError(fiber.StatusBadRequest, "invalid amount format")

// ErrAmountNonPositive is returned when an amount is zero or negative.
var ErrAmountNonPositive = fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")

// NewAddressRequired returns a 400 Bad Request for a missing address field.
func NewAddressRequired(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, field+" address is required")
}

// NewInvalidAddress returns a 400 Bad Request for an invalid address format.
func NewInvalidAddress(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, "invalid "+field+" address")
}

// badRequestErrors are core failures caused by the request itself.
var badRequestErrors = []error{
	pair.ErrInsufficientLiquidityMinted,
	pair.ErrInsufficientLiquidityBurned,
	pair.ErrInsufficientOutputAmount,
	pair.ErrInsufficientInputAmount,
	pair.ErrInsufficientLiquidity,
	pair.ErrInvalidTo,
	pair.ErrK,
	factory.ErrIdenticalAddresses,
	factory.ErrZeroAddress,
	factory.ErrUnknownToken,
	router.ErrExpired,
	router.ErrInvalidPath,
	router.ErrInsufficientAAmount,
	router.ErrInsufficientBAmount,
	router.ErrInsufficientOutputAmount,
	router.ErrExcessiveInputAmount,
	router.ErrNoRoute,
	calculator.ErrNilAmount,
	calculator.ErrInsufficientAmount,
	calculator.ErrInsufficientInputAmount,
	calculator.ErrInsufficientOutputAmount,
	calculator.ErrInsufficientLiquidity,
	token.ErrNilAmount,
	token.ErrNegativeAmount,
	token.ErrInsufficientBalance,
	token.ErrInsufficientAllowance,
}

// mapCoreError translates core sentinel errors into HTTP errors.
func mapCoreError(err error) error {
	switch {
	case errors.Is(err, exchange.ErrTokenNotFound), errors.Is(err, router.ErrPairNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, exchange.ErrTokenExists), errors.Is(err, factory.ErrPairExists):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	for _, sentinel := range badRequestErrors {
		if errors.Is(err, sentinel) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	return fiber.NewError(fiber.StatusInternalServerError, "operation failed")
}

package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hikarilabs/sited/internal/dex"
	"github.com/hikarilabs/sited/internal/images"
	"github.com/hikarilabs/sited/internal/quiz"
	"github.com/hikarilabs/sited/internal/ticket"
	"github.com/hikarilabs/sited/internal/todo"
)

// domainError maps service sentinel errors to HTTP errors. Anything
// unmapped surfaces as a 500 through Echo's default handler.
func domainError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, todo.ErrNotFound),
		errors.Is(err, todo.ErrCategoryNotFound),
		errors.Is(err, quiz.ErrNotFound),
		errors.Is(err, ticket.ErrNotFound),
		errors.Is(err, images.ErrNotFound),
		errors.Is(err, dex.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, todo.ErrDuplicateName):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ticket.ErrExhausted),
		errors.Is(err, ticket.ErrExpired):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, images.ErrTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, images.ErrUnsupportedType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	default:
		return err
	}
}

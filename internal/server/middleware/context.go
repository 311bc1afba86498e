package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/latticekg/lattice/internal/app"
)

// AppContext carries the assembled application and the queue channel
// into route handlers.
type AppContext struct {
	echo.Context
	App   *app.App
	Queue *amqp091.Channel
}

func AppContextMiddleware(a *app.App, queue *amqp091.Channel) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, a, queue})
		}
	}
}

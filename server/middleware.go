package main

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/user0608/photosheet/health"
)

const correlationHeader = "X-Correlation-ID"

// CorrelationID propagates the caller's correlation id, minting one
// when the request carries none.
func CorrelationID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(correlationHeader)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set("correlation_id", id)
			c.Response().Header().Set(correlationHeader, id)
			return next(c)
		}
	}
}

// RecordRequests feeds every request outcome into the health monitor.
func RecordRequests(monitor *health.Monitor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				monitor.RecordRequest(false, err.Error())
				return err
			}
			if status := c.Response().Status; status >= http.StatusBadRequest {
				monitor.RecordRequest(false, http.StatusText(status))
				return nil
			}
			monitor.RecordRequest(true, "")
			return nil
		}
	}
}

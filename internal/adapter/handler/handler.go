package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/srgjo27/experience_escrow/internal/core/services"
	"github.com/srgjo27/experience_escrow/internal/core/stake"
)

// AccountHeader carries the caller identity established by the gateway.
const AccountHeader = "X-Account"

type EscrowService interface {
	CreateRun(ctx context.Context, req services.CreateRunRequest) (*services.RunReceipt, error)
	CreateBooking(ctx context.Context, req services.CreateBookingRequest) (*services.BookingReceipt, error)
	CancelBooking(ctx context.Context, bookingID uint64, requester domain.Account) error
	CompleteRun(ctx context.Context, runID uint64, attended []uint64, caller domain.Account) (*services.RunSettlement, error)
	CancelRun(ctx context.Context, runID uint64, caller domain.Account) (*services.RunSettlement, error)
	BookingCost(ctx context.Context, runID uint64, seatCount uint32) (stake.Cost, error)
	RequiredHostStake(price domain.Amount, maxSeats uint32) (domain.Amount, error)
	GetRun(ctx context.Context, runID uint64) (*domain.EventRun, error)
	GetBooking(ctx context.Context, bookingID uint64) (*domain.Booking, error)
	RunBookings(ctx context.Context, runID uint64) ([]domain.Booking, error)
	HostRuns(ctx context.Context, host domain.Account) ([]domain.EventRun, error)
	UserBookings(ctx context.Context, user domain.Account) ([]domain.Booking, error)
	RunLedger(ctx context.Context, runID uint64) ([]domain.LedgerEntry, error)
	AccountBalance(ctx context.Context, account domain.Account) (domain.Amount, error)
}

type Handler struct {
	svc EscrowService
	log logrus.FieldLogger
}

func NewHandler(svc EscrowService, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Register(e *echo.Echo) {
	e.Use(middleware.Recover())
	e.Use(h.requestLogger)

	e.GET("/healthz", Health)

	v1 := e.Group("/v1")
	v1.GET("/stake", h.RequiredStake)

	v1.POST("/runs", h.CreateRun)
	v1.GET("/runs/:id", h.GetRun)
	v1.GET("/runs/:id/cost", h.BookingCost)
	v1.GET("/runs/:id/bookings", h.RunBookings)
	v1.GET("/runs/:id/ledger", h.RunLedger)
	v1.POST("/runs/:id/bookings", h.CreateBooking)
	v1.POST("/runs/:id/complete", h.CompleteRun)
	v1.POST("/runs/:id/cancel", h.CancelRun)

	v1.GET("/bookings/:id", h.GetBooking)
	v1.POST("/bookings/:id/cancel", h.CancelBooking)

	v1.GET("/hosts/:account/runs", h.HostRuns)
	v1.GET("/users/:account/bookings", h.UserBookings)
	v1.GET("/accounts/:account/balance", h.AccountBalance)
}

func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (h *Handler) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		h.log.WithFields(logrus.Fields{
			"method":  c.Request().Method,
			"path":    c.Path(),
			"status":  c.Response().Status,
			"latency": time.Since(start),
		}).Debug("Handled request")

		return nil
	}
}

func caller(c echo.Context) (domain.Account, error) {
	account := c.Request().Header.Get(AccountHeader)
	if account == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, AccountHeader+" header is required")
	}

	return domain.Account(account), nil
}

func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return id, nil
}

func queryUint(c echo.Context, name string, bits int) (uint64, error) {
	n, err := strconv.ParseUint(c.QueryParam(name), 10, bits)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}

	return n, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrCapacityExceeded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientStake), errors.Is(err, domain.ErrInsufficientPayment):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

func (h *Handler) fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.Path()).Error("Request failed")
		return c.JSON(status, echo.Map{"error": "internal server error"})
	}

	return c.JSON(status, echo.Map{"error": err.Error()})
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/srgjo27/experience_escrow/internal/core/services"
)

type completeRunRequest struct {
	AttendedBookingIDs []uint64 `json:"attended_booking_ids"`
}

// CreateRun handles POST /v1/runs. The caller becomes the host.
func (h *Handler) CreateRun(c echo.Context) error {
	host, err := caller(c)
	if err != nil {
		return err
	}

	var req services.CreateRunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Host = host

	receipt, err := h.svc.CreateRun(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusCreated, receipt)
}

func (h *Handler) GetRun(c echo.Context) error {
	runID, err := pathID(c)
	if err != nil {
		return err
	}

	run, err := h.svc.GetRun(c.Request().Context(), runID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, run)
}

// BookingCost handles GET /v1/runs/:id/cost?seats=n.
func (h *Handler) BookingCost(c echo.Context) error {
	runID, err := pathID(c)
	if err != nil {
		return err
	}

	seats, err := queryUint(c, "seats", 32)
	if err != nil {
		return err
	}

	cost, err := h.svc.BookingCost(c.Request().Context(), runID, uint32(seats))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, cost)
}

func (h *Handler) RunBookings(c echo.Context) error {
	runID, err := pathID(c)
	if err != nil {
		return err
	}

	bookings, err := h.svc.RunBookings(c.Request().Context(), runID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"bookings": nonNil(bookings)})
}

func (h *Handler) RunLedger(c echo.Context) error {
	runID, err := pathID(c)
	if err != nil {
		return err
	}

	entries, err := h.svc.RunLedger(c.Request().Context(), runID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"entries": nonNil(entries)})
}

func (h *Handler) CompleteRun(c echo.Context) error {
	host, err := caller(c)
	if err != nil {
		return err
	}

	runID, err := pathID(c)
	if err != nil {
		return err
	}

	var req completeRunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	settlement, err := h.svc.CompleteRun(c.Request().Context(), runID, req.AttendedBookingIDs, host)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, settlement)
}

func (h *Handler) CancelRun(c echo.Context) error {
	account, err := caller(c)
	if err != nil {
		return err
	}

	runID, err := pathID(c)
	if err != nil {
		return err
	}

	settlement, err := h.svc.CancelRun(c.Request().Context(), runID, account)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, settlement)
}

func (h *Handler) HostRuns(c echo.Context) error {
	runs, err := h.svc.HostRuns(c.Request().Context(), domain.Account(c.Param("account")))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"runs": nonNil(runs)})
}

// RequiredStake handles GET /v1/stake?price=&seats=.
func (h *Handler) RequiredStake(c echo.Context) error {
	price, err := queryUint(c, "price", 64)
	if err != nil {
		return err
	}

	seats, err := queryUint(c, "seats", 32)
	if err != nil {
		return err
	}

	required, err := h.svc.RequiredHostStake(domain.Amount(price), uint32(seats))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"host_stake": required})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}

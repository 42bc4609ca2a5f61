package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/srgjo27/experience_escrow/internal/core/services"
)

// CreateBooking handles POST /v1/runs/:id/bookings. The deposit must cover
// payment plus stake; any surplus is reported back as change.
func (h *Handler) CreateBooking(c echo.Context) error {
	user, err := caller(c)
	if err != nil {
		return err
	}

	runID, err := pathID(c)
	if err != nil {
		return err
	}

	var req services.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.RunID = runID
	req.User = user

	receipt, err := h.svc.CreateBooking(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusCreated, receipt)
}

func (h *Handler) GetBooking(c echo.Context) error {
	bookingID, err := pathID(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), bookingID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, booking)
}

func (h *Handler) CancelBooking(c echo.Context) error {
	requester, err := caller(c)
	if err != nil {
		return err
	}

	bookingID, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.svc.CancelBooking(c.Request().Context(), bookingID, requester); err != nil {
		return h.fail(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UserBookings(c echo.Context) error {
	bookings, err := h.svc.UserBookings(c.Request().Context(), domain.Account(c.Param("account")))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"bookings": nonNil(bookings)})
}

func (h *Handler) AccountBalance(c echo.Context) error {
	account := domain.Account(c.Param("account"))

	balance, err := h.svc.AccountBalance(c.Request().Context(), account)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"account": account, "balance": balance})
}

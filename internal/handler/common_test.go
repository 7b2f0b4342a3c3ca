package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/repository"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHTTPErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"forbidden", repository.ErrForbidden, http.StatusForbidden},
		{"capacity", repository.ErrCapacityExceeded, http.StatusConflict},
		{"duplicate pending", repository.ErrDuplicatePending, http.StatusConflict},
		{"conflict", repository.ErrConflict, http.StatusConflict},
		{"already processed", repository.ErrAlreadyProcessed, http.StatusBadRequest},
		{"validation", repository.ErrValidation, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("%w: reject_reason is required", repository.ErrValidation), http.StatusBadRequest},
		{"transition", &model.TransitionError{From: model.StatusCancelled, To: model.StatusConfirmed}, http.StatusBadRequest},
		{"unknown", errors.New("driver exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(t)
			require.NoError(t, httpError(c, tc.err))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestHTTPErrorHidesInternalDetails(t *testing.T) {
	c, rec := newTestContext(t)
	require.NoError(t, httpError(c, errors.New("Error 1213: Deadlock found")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "1213")
	assert.Contains(t, rec.Body.String(), "internal error")
}

func TestGetUserID(t *testing.T) {
	c, _ := newTestContext(t)

	_, err := getUserID(c)
	assert.Error(t, err)

	// JWT claims decode numeric values as float64.
	c.Set("user_id", float64(42))
	id, err := getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	c.Set("user_id", "17")
	id, err = getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(17), id)

	c.Set("user_id", "not-a-number")
	_, err = getUserID(c)
	assert.Error(t, err)
}

func TestParamID(t *testing.T) {
	c, _ := newTestContext(t)
	c.SetParamNames("id")

	c.SetParamValues("12")
	id, ok := paramID(c, "id")
	assert.True(t, ok)
	assert.Equal(t, uint64(12), id)

	c.SetParamValues("0")
	_, ok = paramID(c, "id")
	assert.False(t, ok)

	c.SetParamValues("abc")
	_, ok = paramID(c, "id")
	assert.False(t, ok)
}

func TestToReservationResp(t *testing.T) {
	reason := ""
	r := &model.Reservation{
		ID:            5,
		ClassID:       1,
		CustomerName:  "Alice",
		CustomerPhone: "010-1234-5678",
		DesiredDate:   "2026-09-10",
		DesiredTime:   "14:00",
		NumPeople:     2,
		Status:        model.StatusConfirmed,
		CancelReason:  &reason,
		ChangeToken:   "secret-token",
	}
	resp := toReservationResp(r)
	assert.Equal(t, "2026-09-10", resp.Date)
	assert.Equal(t, "14:00", resp.Time)
	assert.True(t, resp.CancelRequested)
	assert.Equal(t, "confirmed", resp.Status)
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/warp-contracts/licensing/src/utils/errs"
	. "github.com/warp-contracts/licensing/src/utils/logger"

	"github.com/gin-gonic/gin"
)

// Maps error kinds to HTTP statuses
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrOwnership):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrSelfLicense), errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrQuery), errors.Is(err, errs.ErrSettlement):
		return http.StatusBadGateway
	case errors.Is(err, errs.ErrFundingTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Responds with the status matching the error and logs it
func onError(c *gin.Context, err error, msg string) {
	status := statusOf(err)
	entry := LOGE(c, err, status)
	if status >= http.StatusInternalServerError {
		entry.Error(msg)
	} else {
		entry.Debug(msg)
	}
}

func parseId(c *gin.Context, name string) (out uint64, err error) {
	out, err = strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		err = errs.Validation("invalid %s %q", name, c.Param(name))
	}
	return
}

// Binding failures are validation errors
func bind(c *gin.Context, in interface{}) error {
	err := c.ShouldBindJSON(in)
	if err != nil {
		return errs.Wrap(errs.ErrValidation, err, "malformed request")
	}
	return nil
}

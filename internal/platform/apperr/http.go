package apperr

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Body is the JSON error payload returned to clients.
type Body struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// HTTPStatus maps a kind onto a response status.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTP converts a service error into an echo error. Consistency and
// internal errors keep the cause only as the internal error, which is logged
// by the request logger but never written to the response.
func ToHTTP(err error) *echo.HTTPError {
	ae, ok := As(err)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, Body{
			Code:    "INTERNAL",
			Kind:    KindInternal.String(),
			Message: "internal server error",
		}).SetInternal(err)
	}

	if ae == ErrUnauthenticated || ae.parent == ErrUnauthenticated {
		return echo.NewHTTPError(http.StatusUnauthorized, Body{
			Code: ae.Code, Kind: ae.Kind.String(), Message: ae.Message,
		})
	}

	he := echo.NewHTTPError(HTTPStatus(ae.Kind), Body{
		Code:    ae.Code,
		Kind:    ae.Kind.String(),
		Message: ae.Message,
	})
	if ae.Kind == KindConsistency || ae.Kind == KindInternal {
		he.Message = Body{Code: ae.Code, Kind: ae.Kind.String(), Message: rootMessage(ae)}
		he.SetInternal(err)
	}
	return he
}

// rootMessage drops any detail appended with Withf.
func rootMessage(e *Error) string {
	for e.parent != nil {
		e = e.parent
	}
	return e.Message
}

package httpadapter

import (
	"net/http"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrEmptyMesh),
		domain.IsKind(err, domain.ErrMeshOutOfRange):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	// Upstream credential problems are ours, not the caller's.
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrUpstream):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(status int) string {
	switch status {
	case http.StatusBadGateway:
		return "upstream service error"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	case http.StatusGatewayTimeout:
		return "upstream service timed out"
	default:
		return "internal server error"
	}
}

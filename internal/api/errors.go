package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/devshelf/devshelf/internal/api/respond"
	"github.com/devshelf/devshelf/internal/model"
)

// writeFailure maps an operation error onto the wire. Validation problems
// echo their message, everything else answers with a generic body and the
// cause goes to the log instead.
func writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w)
	case errors.Is(err, model.ErrUnavailable):
		respond.WriteUnavailable(w)
	case errors.Is(err, model.ErrUpstream):
		zerolog.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("upstream dependency failed")
		respond.WriteUpstreamError(w)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("request failed")
		respond.WriteInternalError(w)
	}
}

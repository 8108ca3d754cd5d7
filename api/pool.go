package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cipherpool/cipherpool/crypto/ethereum"
	"github.com/cipherpool/cipherpool/pool"
	"github.com/cipherpool/cipherpool/types"
)

// poolInfo returns the public view of a pool.
// GET /pools/{poolId}
func (a *API) poolInfo(w http.ResponseWriter, r *http.Request) {
	pid, ok := a.urlPoolID(w, r)
	if !ok {
		return
	}
	resp := &PoolResponse{
		PoolID:  pid.Marshal(),
		Owner:   a.pools.Owner(pid),
		Count:   a.pools.RatingsCount(pid),
		Version: a.pools.Version(),
	}
	if h := a.pools.SumHandle(pid); !h.IsZero() {
		resp.SumHandle = h.Bytes()
	}
	if h := a.pools.AvgHandle(pid); !h.IsZero() {
		resp.AvgHandle = h.Bytes()
	}
	httpWriteJSON(w, resp)
}

// setOwner creates a pool or transfers its ownership.
// POST /pools/{poolId}/owner
func (a *API) setOwner(w http.ResponseWriter, r *http.Request) {
	pid, ok := a.urlPoolID(w, r)
	if !ok {
		return
	}
	req := &SetOwnerRequest{}
	if !a.decodeRequest(w, r, req) {
		return
	}
	caller, err := ethereum.AddrFromSignature(SetOwnerMessage(pid, req.NewOwner), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if err := a.pools.SetOwner(pid, caller, req.NewOwner); err != nil {
		a.writePoolError(w, err)
		return
	}
	httpWriteOK(w)
}

// grantAccess grants a principal read capability on the current average.
// POST /pools/{poolId}/access
func (a *API) grantAccess(w http.ResponseWriter, r *http.Request) {
	pid, ok := a.urlPoolID(w, r)
	if !ok {
		return
	}
	req := &GrantAccessRequest{}
	if !a.decodeRequest(w, r, req) {
		return
	}
	caller, err := ethereum.AddrFromSignature(GrantAccessMessage(pid, req.To), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if err := a.pools.GrantAccess(pid, caller, req.To); err != nil {
		a.writePoolError(w, err)
		return
	}
	httpWriteOK(w)
}

// makePublic marks the current average handle globally decryptable.
// POST /pools/{poolId}/public
func (a *API) makePublic(w http.ResponseWriter, r *http.Request) {
	pid, ok := a.urlPoolID(w, r)
	if !ok {
		return
	}
	req := &MakePublicRequest{}
	if !a.decodeRequest(w, r, req) {
		return
	}
	caller, err := ethereum.AddrFromSignature(MakePublicMessage(pid), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if err := a.pools.MakePublic(pid, caller); err != nil {
		a.writePoolError(w, err)
		return
	}
	httpWriteOK(w)
}

// urlPoolID parses the pool identifier URL parameter, writing the error
// response on failure.
func (a *API) urlPoolID(w http.ResponseWriter, r *http.Request) (types.PoolID, bool) {
	pid, err := types.PoolIDFromString(chi.URLParam(r, PoolURLParam))
	if err != nil {
		ErrMalformedPoolID.WithErr(err).Write(w)
		return types.PoolID{}, false
	}
	return pid, true
}

// decodeRequest decodes and validates a JSON request body, writing the error
// response on failure.
func (a *API) decodeRequest(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return false
	}
	if err := a.validate.Struct(req); err != nil {
		ErrMalformedBody.Withf("invalid request body: %v", err).Write(w)
		return false
	}
	return true
}

// writePoolError maps a core failure to its API error and writes it,
// counting it in the metrics.
func (a *API) writePoolError(w http.ResponseWriter, err error) {
	var apiErr Error
	switch {
	case errors.Is(err, pool.ErrNotOwner):
		apiErr = ErrNotPoolOwner
	case errors.Is(err, pool.ErrBadAddress):
		apiErr = ErrBadAddress
	case errors.Is(err, pool.ErrInvalidAttestation):
		apiErr = ErrInvalidAttestation
	case errors.Is(err, pool.ErrPoolNotConfigured):
		apiErr = ErrPoolNotConfigured
	case errors.Is(err, pool.ErrPoolNotFound):
		apiErr = ErrPoolNotFound
	case errors.Is(err, pool.ErrNoScores):
		apiErr = ErrNoScores
	default:
		apiErr = ErrGenericInternalServerError.WithErr(err)
	}
	operationErrors.WithLabelValues(errorClass(err)).Inc()
	apiErr.Write(w)
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, pool.ErrAuthorization):
		return "authorization"
	case errors.Is(err, pool.ErrValidation):
		return "validation"
	case errors.Is(err, pool.ErrState):
		return "state"
	default:
		return "internal"
	}
}

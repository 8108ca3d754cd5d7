package api

import (
	"net/http"
)

// submitScore folds an encrypted rating into the pool accumulator.
// POST /pools/{poolId}/scores
func (a *API) submitScore(w http.ResponseWriter, r *http.Request) {
	pid, ok := a.urlPoolID(w, r)
	if !ok {
		return
	}
	req := &SubmitScoreRequest{}
	if !a.decodeRequest(w, r, req) {
		return
	}
	if err := a.pools.SubmitScore(pid, req.Ciphertext, req.Attestation); err != nil {
		a.writePoolError(w, err)
		return
	}
	scoresSubmitted.Inc()
	httpWriteJSON(w, &SubmitScoreResponse{Count: a.pools.RatingsCount(pid)})
}

// recomputeAverage derives the encrypted average on demand. Anyone may
// trigger it, the result stays encrypted either way.
// POST /pools/{poolId}/average
func (a *API) recomputeAverage(w http.ResponseWriter, r *http.Request) {
	pid, ok := a.urlPoolID(w, r)
	if !ok {
		return
	}
	if err := a.pools.RecomputeAverage(pid); err != nil {
		a.writePoolError(w, err)
		return
	}
	averagesRecomputed.Inc()
	httpWriteOK(w)
}

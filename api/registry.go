package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

// registry returns the access-control registry state
// GET /registry
func (a *API) registry(w http.ResponseWriter, r *http.Request) {
	reg, err := a.aggregator.Registry()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, reg)
}

// transferAdministrator reassigns the administrator role
// POST /registry/administrator
func (a *API) transferAdministrator(w http.ResponseWriter, r *http.Request) {
	var req TransferAdministratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if err := a.aggregator.TransferAdministrator(req.Caller, req.NewAdministrator); err != nil {
		writeOperationError(w, err)
		return
	}
	httpWriteOK(w)
}

// listSubmitters returns the submitter set
// GET /registry/submitters
func (a *API) listSubmitters(w http.ResponseWriter, r *http.Request) {
	submitters, err := a.aggregator.ListSubmitters()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, SubmittersResponse{Submitters: submitters})
}

// addSubmitter grants submission rights to an identity
// POST /registry/submitters
func (a *API) addSubmitter(w http.ResponseWriter, r *http.Request) {
	var req SubmitterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if err := a.aggregator.AddSubmitter(req.Caller, req.Submitter); err != nil {
		writeOperationError(w, err)
		return
	}
	httpWriteOK(w)
}

// removeSubmitter revokes submission rights from an identity
// DELETE /registry/submitters/{address}
func (a *API) removeSubmitter(w http.ResponseWriter, r *http.Request) {
	addrStr := chi.URLParam(r, AddressURLParam)
	if !common.IsHexAddress(addrStr) {
		ErrMalformedAddress.Withf("invalid address: %s", addrStr).Write(w)
		return
	}
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if err := a.aggregator.RemoveSubmitter(req.Caller, common.HexToAddress(addrStr)); err != nil {
		writeOperationError(w, err)
		return
	}
	httpWriteOK(w)
}

// setPaused engages or releases the pause switch
// POST /registry/pause
func (a *API) setPaused(w http.ResponseWriter, r *http.Request) {
	var req SetPausedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if err := a.aggregator.SetPaused(req.Caller, req.Paused); err != nil {
		writeOperationError(w, err)
		return
	}
	httpWriteOK(w)
}

// setCooldown updates the rate-limiter cooldown
// POST /registry/cooldown
func (a *API) setCooldown(w http.ResponseWriter, r *http.Request) {
	var req SetCooldownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if err := a.aggregator.SetCooldown(req.Caller, req.CooldownSeconds); err != nil {
		writeOperationError(w, err)
		return
	}
	httpWriteOK(w)
}

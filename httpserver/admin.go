package httpserver

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

// ProtocolConfigRequest updates one or more protocol parameters. Fields
// left null keep their current value.
type ProtocolConfigRequest struct {
	Sender common.Address `json:"sender"`

	GracePeriod               *int64  `json:"grace_period,omitempty"`
	EmbalmerClaimWindow       *int64  `json:"embalmer_claim_window,omitempty"`
	ExpirationThreshold       *int64  `json:"expiration_threshold,omitempty"`
	ProtocolFeeBasePercentage *uint64 `json:"protocol_fee_base_percentage,omitempty"`
	CursedBondPercentage      *uint64 `json:"cursed_bond_percentage,omitempty"`
}

func (h *Handler) HandleSetProtocolConfig(w http.ResponseWriter, r *http.Request) {
	var req ProtocolConfigRequest
	if !h.decode(w, r, &req) {
		return
	}

	apply := func(err error) bool {
		if err != nil {
			h.record("set_protocol_config", err)
			h.fail(w, err)
			return false
		}
		return true
	}
	if req.GracePeriod != nil && !apply(h.engine.SetGracePeriod(req.Sender, *req.GracePeriod)) {
		return
	}
	if req.EmbalmerClaimWindow != nil && !apply(h.engine.SetEmbalmerClaimWindow(req.Sender, *req.EmbalmerClaimWindow)) {
		return
	}
	if req.ExpirationThreshold != nil && !apply(h.engine.SetExpirationThreshold(req.Sender, *req.ExpirationThreshold)) {
		return
	}
	if req.ProtocolFeeBasePercentage != nil && !apply(h.engine.SetProtocolFeeBasePercentage(req.Sender, *req.ProtocolFeeBasePercentage)) {
		return
	}
	if req.CursedBondPercentage != nil && !apply(h.engine.SetCursedBondPercentage(req.Sender, *req.CursedBondPercentage)) {
		return
	}

	h.record("set_protocol_config", nil)
	h.respond(w, http.StatusOK, h.engine.Config())
}

func (h *Handler) HandleProtocolConfig(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.engine.Config())
}

// TransferAdminRequest hands administration to a new address.
type TransferAdminRequest struct {
	Sender   common.Address `json:"sender"`
	NewAdmin common.Address `json:"new_admin"`
}

func (h *Handler) HandleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	var req TransferAdminRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.engine.TransferAdmin(req.Sender, req.NewAdmin)
	h.record("transfer_admin", err)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"admin": req.NewAdmin.Hex()})
}

// WithdrawProtocolFeesRequest drains the protocol fee pool.
type WithdrawProtocolFeesRequest struct {
	Sender common.Address `json:"sender"`
	To     common.Address `json:"to"`
}

func (h *Handler) HandleWithdrawProtocolFees(w http.ResponseWriter, r *http.Request) {
	var req WithdrawProtocolFeesRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := h.engine.WithdrawProtocolFees(req.Sender, req.To)
	h.record("withdraw_protocol_fees", err)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]*big.Int{"withdrawn": amount})
}

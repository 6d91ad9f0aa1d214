package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"

	"github.com/sarcophagus-org/sarco-engine/engine"
	"github.com/sarcophagus-org/sarco-engine/interfaces"
	"github.com/sarcophagus-org/sarco-engine/metrics"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// Handler translates the JSON API onto engine operations.
type Handler struct {
	engine  *engine.Engine
	sink    *engine.MemorySink
	metrics *metrics.MetricsServer
	log     *slog.Logger
}

// NewHandler creates a handler for the given engine. The sink and metrics
// server are optional; without a sink the events endpoint serves empty
// lists.
func NewHandler(eng *engine.Engine, sink *engine.MemorySink, m *metrics.MetricsServer, log *slog.Logger) *Handler {
	return &Handler{
		engine:  eng,
		sink:    sink,
		metrics: m,
		log:     log,
	}
}

func (h *Handler) record(operation string, err error) {
	if h.metrics != nil {
		h.metrics.RecordOperation(operation, err)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(into); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.log.Error("Failed to encode response", "err", err)
		}
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusForError(err))
}

// statusForError maps the engine's error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, interfaces.ErrSarcophagusDoesNotExist),
		errors.Is(err, interfaces.ErrArchaeologistNotRegistered),
		errors.Is(err, interfaces.ErrArchaeologistNotOnSarcophagus):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrSenderNotEmbalmer),
		errors.Is(err, interfaces.ErrSenderNotEmbalmerOrAdmin),
		errors.Is(err, interfaces.ErrSenderNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, interfaces.ErrSarcophagusAlreadyExists),
		errors.Is(err, interfaces.ErrSarcophagusCompromised),
		errors.Is(err, interfaces.ErrSarcophagusBuried),
		errors.Is(err, interfaces.ErrSarcophagusAlreadyCleaned),
		errors.Is(err, interfaces.ErrAlreadyPublished),
		errors.Is(err, interfaces.ErrArchaeologistAccused),
		errors.Is(err, interfaces.ErrArchaeologistRegistered):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func sarcoIDFromURL(r *http.Request) (interfaces.SarcophagusID, error) {
	return interfaces.NewSarcophagusIDFromHex(chi.URLParam(r, "id"))
}

func addressFromURL(r *http.Request) common.Address {
	return common.HexToAddress(chi.URLParam(r, "address"))
}

// RegisterArchaeologistRequest enrolls a new archaeologist.
type RegisterArchaeologistRequest struct {
	Archaeologist              common.Address `json:"archaeologist"`
	PeerID                     string         `json:"peer_id"`
	MinimumDiggingFeePerSecond *big.Int       `json:"minimum_digging_fee_per_second"`
	MaximumRewrapInterval      int64          `json:"maximum_rewrap_interval"`
	FreeBondDeposit            *big.Int       `json:"free_bond_deposit"`
}

func (h *Handler) HandleRegisterArchaeologist(w http.ResponseWriter, r *http.Request) {
	var req RegisterArchaeologistRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.engine.Registry().Register(req.Archaeologist, req.PeerID, req.MinimumDiggingFeePerSecond, req.MaximumRewrapInterval, req.FreeBondDeposit)
	h.record("register_archaeologist", err)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (h *Handler) HandleUpdateArchaeologist(w http.ResponseWriter, r *http.Request) {
	var req RegisterArchaeologistRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.engine.Registry().Update(req.Archaeologist, req.PeerID, req.MinimumDiggingFeePerSecond, req.MaximumRewrapInterval)
	h.record("update_archaeologist", err)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "updated"})
}

// AmountRequest carries a single token amount.
type AmountRequest struct {
	Amount *big.Int `json:"amount"`
}

func (h *Handler) HandleDepositFreeBond(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.engine.Registry().DepositFreeBond(addressFromURL(r), req.Amount)
	h.record("deposit_free_bond", err)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "deposited"})
}

func (h *Handler) HandleWithdrawFreeBond(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.engine.Registry().WithdrawFreeBond(addressFromURL(r), req.Amount)
	h.record("withdraw_free_bond", err)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

func (h *Handler) HandleWithdrawReward(w http.ResponseWriter, r *http.Request) {
	amount, err := h.engine.Registry().WithdrawReward(addressFromURL(r))
	h.record("withdraw_reward", err)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]*big.Int{"withdrawn": amount})
}

// ArchaeologistResponse combines a profile with its stats and balances.
type ArchaeologistResponse struct {
	Profile    interfaces.ArchaeologistProfile `json:"profile"`
	Stats      interfaces.ArchaeologistStats   `json:"stats"`
	FreeBond   *big.Int                        `json:"free_bond"`
	CursedBond *big.Int                        `json:"cursed_bond"`
	Reward     *big.Int                        `json:"reward"`
}

func (h *Handler) HandleArchaeologist(w http.ResponseWriter, r *http.Request) {
	address := addressFromURL(r)
	profile, ok := h.engine.Registry().Profile(address)
	if !ok {
		h.fail(w, interfaces.ErrArchaeologistNotRegistered)
		return
	}
	h.respond(w, http.StatusOK, &ArchaeologistResponse{
		Profile:    profile,
		Stats:      h.engine.Registry().Stats(address),
		FreeBond:   h.engine.Ledger().FreeBond(address),
		CursedBond: h.engine.Ledger().CursedBond(address),
		Reward:     h.engine.Ledger().Reward(address),
	})
}

// SelectedArchaeologistRequest is one archaeologist's signed curse terms.
type SelectedArchaeologistRequest struct {
	Address             common.Address `json:"address"`
	PublicKey           hexutil.Bytes  `json:"public_key"`
	DiggingFeePerSecond *big.Int       `json:"digging_fee_per_second"`
	Signature           hexutil.Bytes  `json:"signature"`
}

// CreateSarcophagusRequest is the embalmer's creation call.
type CreateSarcophagusRequest struct {
	Embalmer              common.Address                 `json:"embalmer"`
	ID                    interfaces.SarcophagusID       `json:"id"`
	Name                  string                         `json:"name"`
	ResurrectionTime      int64                          `json:"resurrection_time"`
	CreationTime          int64                          `json:"creation_time"`
	MaximumRewrapInterval int64                          `json:"maximum_rewrap_interval"`
	Threshold             int                            `json:"threshold"`
	ArweaveTxIDs          [2]string                      `json:"arweave_tx_ids"`
	Recipient             common.Address                 `json:"recipient"`
	Archaeologists        []SelectedArchaeologistRequest `json:"archaeologists"`
}

func (h *Handler) HandleCreateSarcophagus(w http.ResponseWriter, r *http.Request) {
	var req CreateSarcophagusRequest
	if !h.decode(w, r, &req) {
		return
	}

	params := engine.CreateParams{
		ID:                    req.ID,
		Name:                  req.Name,
		ResurrectionTime:      req.ResurrectionTime,
		CreationTime:          req.CreationTime,
		MaximumRewrapInterval: req.MaximumRewrapInterval,
		Threshold:             req.Threshold,
		ArweaveTxIDs:          req.ArweaveTxIDs,
		Recipient:             req.Recipient,
	}
	for _, selected := range req.Archaeologists {
		params.Archaeologists = append(params.Archaeologists, engine.SelectedArchaeologist{
			Address:             selected.Address,
			PublicKey:           selected.PublicKey,
			DiggingFeePerSecond: selected.DiggingFeePerSecond,
			Signature:           selected.Signature,
		})
	}

	err := h.engine.CreateSarcophagus(req.Embalmer, params)
	h.record("create_sarcophagus", err)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, map[string]string{"id": req.ID.String()})
}

func (h *Handler) HandleSarcophagus(w http.ResponseWriter, r *http.Request) {
	id, err := sarcoIDFromURL(r)
	if err != nil {
		http.Error(w, "invalid sarcophagus id", http.StatusBadRequest)
		return
	}
	details, err := h.engine.Sarcophagus(id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, details)
}

// SenderRequest carries only the caller's address.
type SenderRequest struct {
	Sender common.Address `json:"sender"`
}

// RewrapRequest extends a sarcophagus's resurrection time.
type RewrapRequest struct {
	Sender              common.Address `json:"sender"`
	NewResurrectionTime int64          `json:"new_resurrection_time"`
}

func (h *Handler) HandleRewrap(w http.ResponseWriter, r *http.Request) {
	id, err := sarcoIDFromURL(r)
	if err != nil {
		http.Error(w, "invalid sarcophagus id", http.StatusBadRequest)
		return
	}
	var req RewrapRequest
	if !h.decode(w, r, &req) {
		return
	}
	err = h.engine.RewrapSarcophagus(req.Sender, id, req.NewResurrectionTime)
	h.record("rewrap_sarcophagus", err)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "rewrapped"})
}

func (h *Handler) HandleBury(w http.ResponseWriter, r *http.Request) {
	id, err := sarcoIDFromURL(r)
	if err != nil {
		http.Error(w, "invalid sarcophagus id", http.StatusBadRequest)
		return
	}
	var req SenderRequest
	if !h.decode(w, r, &req) {
		return
	}
	err = h.engine.BurySarcophagus(req.Sender, id)
	h.record("bury_sarcophagus", err)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "buried"})
}

// PublishRequest releases an archaeologist's private key.
type PublishRequest struct {
	Sender     common.Address `json:"sender"`
	PrivateKey hexutil.Bytes  `json:"private_key"`
}

func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	id, err := sarcoIDFromURL(r)
	if err != nil {
		http.Error(w, "invalid sarcophagus id", http.StatusBadRequest)
		return
	}
	var req PublishRequest
	if !h.decode(w, r, &req) {
		return
	}
	err = h.engine.PublishPrivateKey(req.Sender, id, req.PrivateKey)
	h.record("publish_private_key", err)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "published"})
}

// AccuseRequest proves leaked keys with signatures over the accusal
// message. Each public key pairs with the signature at the same index.
type AccuseRequest struct {
	PaymentAddress common.Address  `json:"payment_address"`
	PublicKeys     []hexutil.Bytes `json:"public_keys"`
	Signatures     []hexutil.Bytes `json:"signatures"`
}

func (h *Handler) HandleAccuse(w http.ResponseWriter, r *http.Request) {
	id, err := sarcoIDFromURL(r)
	if err != nil {
		http.Error(w, "invalid sarcophagus id", http.StatusBadRequest)
		return
	}
	var req AccuseRequest
	if !h.decode(w, r, &req) {
		return
	}
	publicKeys := make([][]byte, len(req.PublicKeys))
	for i, key := range req.PublicKeys {
		publicKeys[i] = key
	}
	signatures := make([][]byte, len(req.Signatures))
	for i, sig := range req.Signatures {
		signatures[i] = sig
	}
	err = h.engine.AccuseArchaeologists(id, req.PaymentAddress, publicKeys, signatures)
	h.record("accuse_archaeologists", err)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "accused"})
}

func (h *Handler) HandleClean(w http.ResponseWriter, r *http.Request) {
	id, err := sarcoIDFromURL(r)
	if err != nil {
		http.Error(w, "invalid sarcophagus id", http.StatusBadRequest)
		return
	}
	var req SenderRequest
	if !h.decode(w, r, &req) {
		return
	}
	err = h.engine.CleanSarcophagus(req.Sender, id)
	h.record("clean_sarcophagus", err)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "cleaned"})
}

func (h *Handler) HandleSarcophagiByEmbalmer(w http.ResponseWriter, r *http.Request) {
	h.respondIDs(w, h.engine.SarcophagiByEmbalmer(addressFromURL(r)))
}

func (h *Handler) HandleSarcophagiByRecipient(w http.ResponseWriter, r *http.Request) {
	h.respondIDs(w, h.engine.SarcophagiByRecipient(addressFromURL(r)))
}

func (h *Handler) HandleSarcophagiByArchaeologist(w http.ResponseWriter, r *http.Request) {
	h.respondIDs(w, h.engine.SarcophagiByArchaeologist(addressFromURL(r)))
}

func (h *Handler) respondIDs(w http.ResponseWriter, ids []interfaces.SarcophagusID) {
	if ids == nil {
		ids = []interfaces.SarcophagusID{}
	}
	h.respond(w, http.StatusOK, ids)
}

// eventEnvelope tags a retained event with its type for the audit feed.
type eventEnvelope struct {
	Type  string           `json:"type"`
	Event interfaces.Event `json:"event"`
}

func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	id, err := sarcoIDFromURL(r)
	if err != nil {
		http.Error(w, "invalid sarcophagus id", http.StatusBadRequest)
		return
	}
	envelopes := []eventEnvelope{}
	if h.sink != nil {
		for _, event := range h.sink.EventsFor(id) {
			envelopes = append(envelopes, eventEnvelope{Type: event.EventType(), Event: event})
		}
	}
	h.respond(w, http.StatusOK, envelopes)
}

package interfaces

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event type names, stable across releases.
const (
	EventTypeCreated   = "sarcophagus_created"
	EventTypeRewrapped = "sarcophagus_rewrapped"
	EventTypeBuried    = "sarcophagus_buried"
	EventTypePublished = "private_key_published"
	EventTypeAccused   = "sarcophagus_accused"
	EventTypeCleaned   = "sarcophagus_cleaned"
)

// SarcophagusCreated is emitted once per successful creation.
type SarcophagusCreated struct {
	ID               SarcophagusID    `json:"id"`
	Name             string           `json:"name"`
	Embalmer         common.Address   `json:"embalmer"`
	Recipient        common.Address   `json:"recipient"`
	Archaeologists   []common.Address `json:"archaeologists"`
	ResurrectionTime int64            `json:"resurrection_time"`
	TotalDiggingFees *big.Int         `json:"total_digging_fees"`
	ProtocolFee      *big.Int         `json:"protocol_fee"`
	ArweaveTxIDs     [2]string        `json:"arweave_tx_ids"`
	CreationTime     int64            `json:"creation_time"`
}

func (e SarcophagusCreated) EventType() string            { return EventTypeCreated }
func (e SarcophagusCreated) SarcophagusID() SarcophagusID { return e.ID }

// SarcophagusRewrapped is emitted on every successful rewrap.
type SarcophagusRewrapped struct {
	ID                  SarcophagusID `json:"id"`
	NewResurrectionTime int64         `json:"new_resurrection_time"`
	TotalDiggingFees    *big.Int      `json:"total_digging_fees"`
	ProtocolFee         *big.Int      `json:"protocol_fee"`
	RewrapTime          int64         `json:"rewrap_time"`
}

func (e SarcophagusRewrapped) EventType() string            { return EventTypeRewrapped }
func (e SarcophagusRewrapped) SarcophagusID() SarcophagusID { return e.ID }

// SarcophagusBuried is emitted when the embalmer terminates a session early.
type SarcophagusBuried struct {
	ID       SarcophagusID `json:"id"`
	BuryTime int64         `json:"bury_time"`
}

func (e SarcophagusBuried) EventType() string            { return EventTypeBuried }
func (e SarcophagusBuried) SarcophagusID() SarcophagusID { return e.ID }

// PrivateKeyPublished is emitted when an archaeologist releases their key.
type PrivateKeyPublished struct {
	ID            SarcophagusID  `json:"id"`
	Archaeologist common.Address `json:"archaeologist"`
	PrivateKey    []byte         `json:"private_key"`
	DiggingFee    *big.Int       `json:"digging_fee"`
	PublishTime   int64          `json:"publish_time"`
}

func (e PrivateKeyPublished) EventType() string            { return EventTypePublished }
func (e PrivateKeyPublished) SarcophagusID() SarcophagusID { return e.ID }

// SarcophagusAccused is emitted when an accusal call slashes at least one
// archaeologist. Calls with zero new accusals emit nothing.
type SarcophagusAccused struct {
	ID             SarcophagusID    `json:"id"`
	Accused        []common.Address `json:"accused"`
	IsCompromised  bool             `json:"is_compromised"`
	SlashedBond    *big.Int         `json:"slashed_bond"`
	EmbalmerPayout *big.Int         `json:"embalmer_payout"`
	AccuserPayout  *big.Int         `json:"accuser_payout"`
	PaymentAddress common.Address   `json:"payment_address"`
	AccuseTime     int64            `json:"accuse_time"`
}

func (e SarcophagusAccused) EventType() string            { return EventTypeAccused }
func (e SarcophagusAccused) SarcophagusID() SarcophagusID { return e.ID }

// SarcophagusCleaned is emitted by the punitive sweep for derelict
// archaeologists.
type SarcophagusCleaned struct {
	ID             SarcophagusID    `json:"id"`
	Cleaned        []common.Address `json:"cleaned"`
	Payout         *big.Int         `json:"payout"`
	PaidToEmbalmer bool             `json:"paid_to_embalmer"`
	CleanTime      int64            `json:"clean_time"`
}

func (e SarcophagusCleaned) EventType() string            { return EventTypeCleaned }
func (e SarcophagusCleaned) SarcophagusID() SarcophagusID { return e.ID }

package interfaces

import "errors"

// Every rejected state transition surfaces exactly one of the sentinel errors
// below, possibly wrapped with call-site context. Callers classify with
// errors.Is. The taxonomy:
//
//   - not-found: unknown sarcophagus or archaeologist
//   - precondition: the session is in a state that forbids the transition
//   - timing: the call is outside its window
//   - authorization: wrong caller role
//   - validation: malformed input
//   - insufficient-funds: bonding ledger or external balance shortfall
//
// Nothing is retried internally; recovery is the caller's responsibility.
var (
	// Not-found.
	ErrSarcophagusDoesNotExist       = errors.New("sarcophagus does not exist")
	ErrArchaeologistNotRegistered    = errors.New("archaeologist is not registered")
	ErrArchaeologistNotOnSarcophagus = errors.New("archaeologist is not cursed on sarcophagus")

	// Precondition.
	ErrSarcophagusAlreadyExists  = errors.New("sarcophagus already exists")
	ErrSarcophagusCompromised    = errors.New("sarcophagus is compromised")
	ErrSarcophagusBuried         = errors.New("sarcophagus is buried")
	ErrSarcophagusAlreadyCleaned = errors.New("sarcophagus has already been cleaned")
	ErrAlreadyPublished          = errors.New("archaeologist already published their private key")
	ErrArchaeologistAccused      = errors.New("archaeologist has been accused")
	ErrArchaeologistRegistered   = errors.New("archaeologist is already registered")

	// Timing.
	ErrSarcophagusParametersExpired = errors.New("sarcophagus negotiation parameters have expired")
	ErrResurrectionTimeInPast       = errors.New("resurrection time is in the past")
	ErrResurrectionTimeTooFar       = errors.New("resurrection time exceeds the maximum rewrap interval")
	ErrSarcophagusExpired           = errors.New("resurrection time has already passed")
	ErrTooEarlyForPublish           = errors.New("too early to publish the private key")
	ErrTooLateForPublish            = errors.New("too late to publish the private key")
	ErrTooLateToAccuse              = errors.New("accusal window has closed")
	ErrTooEarlyForClean             = errors.New("grace period has not yet elapsed")
	ErrEmbalmerClaimWindowPassed    = errors.New("embalmer claim window has passed")
	ErrEmbalmerClaimWindowOpen      = errors.New("embalmer claim window is still open")

	// Authorization.
	ErrSenderNotEmbalmer        = errors.New("caller is not the embalmer")
	ErrSenderNotEmbalmerOrAdmin = errors.New("caller is neither the embalmer nor the admin")
	ErrSenderNotAdmin           = errors.New("caller is not the admin")

	// Validation.
	ErrNoArchaeologistsProvided = errors.New("no archaeologists provided")
	ErrInvalidThreshold         = errors.New("threshold must be positive and not exceed the archaeologist count")
	ErrDuplicateArchaeologist   = errors.New("archaeologist selected more than once")
	ErrInvalidSignature         = errors.New("signature verification failed")
	ErrSignatureListMismatch    = errors.New("public key and signature lists differ in length")
	ErrIncorrectPrivateKey      = errors.New("private key does not match the committed public key")
	ErrDiggingFeeTooLow         = errors.New("digging fee is below the archaeologist's minimum")
	ErrRewrapIntervalTooLong    = errors.New("rewrap interval exceeds the archaeologist's maximum")
	ErrInvalidAmount            = errors.New("amount must be a non-negative integer")

	// Insufficient-funds.
	ErrInsufficientFreeBond = errors.New("insufficient free bond")
	ErrInsufficientReward   = errors.New("insufficient reward balance")
	ErrInsufficientBalance  = errors.New("insufficient token balance")
)

package bond

import "errors"

var (
	// ErrInvalidInput indicates a zero trade amount or an empty reserve.
	ErrInvalidInput = errors.New("bond: amount and reserves must be positive")
	// ErrNotInEpoch indicates a trade was attempted outside an open epoch.
	ErrNotInEpoch = errors.New("bond: no epoch in progress")
	// ErrNotInCooldown indicates a redemption outside the settlement window.
	ErrNotInCooldown = errors.New("bond: settlement window not open")
	// ErrEpochActive indicates a new epoch was requested while one is running.
	ErrEpochActive = errors.New("bond: epoch already in progress")
	// ErrSettlementInProgress indicates a new epoch was requested during cooldown.
	ErrSettlementInProgress = errors.New("bond: settlement still in progress")
	// ErrNoEpochStarted indicates a floor-curve query before the first epoch.
	ErrNoEpochStarted = errors.New("bond: no epoch has started yet")
	// ErrOperationPaused indicates the operation's pause flag is set.
	ErrOperationPaused = errors.New("bond: operation paused")
	// ErrFloorPriceReached indicates the effective trade price fell below the floor.
	ErrFloorPriceReached = errors.New("bond: trade price below floor")
	// ErrAboveParPrice indicates a sell priced above 1:1 with the reference asset.
	ErrAboveParPrice = errors.New("bond: trade price above par")
	// ErrSlippageExceeded indicates the output fell short of the caller minimum.
	ErrSlippageExceeded = errors.New("bond: output below caller minimum")
	// ErrSupplyCapExceeded indicates third-party holdings block the supply cap.
	ErrSupplyCapExceeded = errors.New("bond: outstanding supply exceeds cap")
	// ErrDiscountTooHigh indicates the failsafe rejected the discount strategy.
	ErrDiscountTooHigh = errors.New("bond: initial discount above failsafe maximum")
	// ErrUnauthorized indicates the caller holds neither the role nor governance authority.
	ErrUnauthorized = errors.New("bond: caller not authorised")
	// ErrInvalidParameter indicates a setter value outside the permitted range.
	ErrInvalidParameter = errors.New("bond: parameter outside permitted range")
	// ErrNilToken indicates the engine was used before its collaborators were wired.
	ErrNilToken = errors.New("bond: token collaborators not configured")
	// ErrPoolToken indicates an attempt to recover one of the two pool tokens.
	ErrPoolToken = errors.New("bond: cannot recover a pool token")
	// ErrInsufficientCustody indicates the engine holds less than the requested amount.
	ErrInsufficientCustody = errors.New("bond: engine custody below requested amount")
)

package execution

import (
	"context"

	"fxwallet/internal/domain"
	"fxwallet/internal/rates"
)

// Execution defines the contract for trade execution venues.
// The table argument is the rate snapshot the trade is priced against.
type Execution interface {
	// Execute validates and settles a trade, returning its record.
	Execute(ctx context.Context, table *rates.Table, req Request) (domain.Transaction, error)

	// Quote prices a trade without settling it.
	Quote(table *rates.Table, req Request) (Quote, error)
}

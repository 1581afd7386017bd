package application

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"treasury-faucet/faucet/domain"
)

// requireCapability é o primeiro passo de toda operação pública.
func requireCapability(ctx context.Context, gate domain.AccessGate, caller common.Address, c domain.CapabilitySet) error {
	if gate == nil {
		return fmt.Errorf("%w: no access gate configured", domain.ErrUnauthorized)
	}
	ok, err := gate.HasCapability(ctx, caller, c)
	if err != nil {
		return fmt.Errorf("access gate: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: caller %s lacks capability %s", domain.ErrUnauthorized, caller.Hex(), c)
	}
	return nil
}

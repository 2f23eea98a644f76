package wallet

import (
	"errors"
	"fmt"

	"github.com/idilsaglam/flashtask/internal/chain"
)

var (
	// ErrProviderAbsent means no wallet endpoint is configured or reachable.
	ErrProviderAbsent = errors.New("no wallet provider found")
	// ErrUserRejected is EIP-1193 error 4001.
	ErrUserRejected = errors.New("request rejected in wallet")
	ErrNoAccounts   = errors.New("wallet returned no accounts")
)

// NetworkSwitchError is returned by Connect when the wallet refused to add
// or switch to the target network. The caller should show ManualSetup.
type NetworkSwitchError struct {
	Network chain.Network
	Err     error
}

func (e *NetworkSwitchError) Error() string {
	return fmt.Sprintf("could not switch wallet to %s: %v", e.Network.Name, e.Err)
}

func (e *NetworkSwitchError) Unwrap() error { return e.Err }

// ManualSetup lists the values needed to add the network by hand.
func (e *NetworkSwitchError) ManualSetup() []string { return e.Network.ManualSetup() }

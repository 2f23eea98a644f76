// Package chain holds the target network description and the unit
// conversions used when talking to the task contract.
package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Network describes the chain the app requires. The same values feed the
// wallet_addEthereumChain request and the manual setup panel.
type Network struct {
	ChainID        uint64   `yaml:"chain_id" mapstructure:"chain_id"`
	Name           string   `yaml:"name" mapstructure:"name"`
	ShortName      string   `yaml:"short_name" mapstructure:"short_name"`
	CurrencyName   string   `yaml:"currency_name" mapstructure:"currency_name"`
	CurrencySymbol string   `yaml:"currency_symbol" mapstructure:"currency_symbol"`
	Decimals       uint8    `yaml:"decimals" mapstructure:"decimals"`
	RPCURLs        []string `yaml:"rpc_urls" mapstructure:"rpc_urls"`
	ExplorerURLs   []string `yaml:"explorer_urls" mapstructure:"explorer_urls"`
	Faucets        []string `yaml:"faucets" mapstructure:"faucets"`
}

// Amoy is the Polygon Amoy test network.
func Amoy() Network {
	return Network{
		ChainID:        80002,
		Name:           "Polygon Amoy",
		ShortName:      "Amoy",
		CurrencyName:   "MATIC",
		CurrencySymbol: "MATIC",
		Decimals:       18,
		RPCURLs:        []string{"https://rpc-amoy.polygon.technology"},
		ExplorerURLs:   []string{"https://amoy.polygonscan.com"},
		Faucets: []string{
			"https://faucet.polygon.technology/",
			"https://docs.google.com/forms/d/e/1FAIpQLSe4npoGldJknEs9EBtPaV3AS-0HTso2IuMWDCiMmLEMCx8euQ/viewform?pli=1",
		},
	}
}

// NativeCurrency is the EIP-3085 currency block.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// AddChainParams is the single parameter object of wallet_addEthereumChain.
type AddChainParams struct {
	ChainID           hexutil.Uint64 `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

// AddChainParams builds the wallet request for n.
func (n Network) AddChainParams() AddChainParams {
	return AddChainParams{
		ChainID:   hexutil.Uint64(n.ChainID),
		ChainName: n.Name,
		NativeCurrency: NativeCurrency{
			Name:     n.CurrencyName,
			Symbol:   n.CurrencySymbol,
			Decimals: n.Decimals,
		},
		RPCURLs:           n.RPCURLs,
		BlockExplorerURLs: n.ExplorerURLs,
	}
}

// Is reports whether id is this network's chain id.
func (n Network) Is(id *big.Int) bool {
	return id != nil && id.IsUint64() && id.Uint64() == n.ChainID
}

// ManualSetup returns the lines shown when the wallet refuses to add the
// network, so the user can configure it by hand.
func (n Network) ManualSetup() []string {
	name := n.ShortName
	if name == "" {
		name = n.Name
	}
	lines := []string{
		"Network name: " + name,
	}
	for _, u := range n.RPCURLs {
		lines = append(lines, "RPC URL: "+u)
	}
	lines = append(lines,
		fmt.Sprintf("ChainID: %d", n.ChainID),
		"Currency Symbol: "+n.CurrencySymbol,
	)
	for _, u := range n.ExplorerURLs {
		lines = append(lines, "Block Explorer: "+u)
	}
	for _, u := range n.Faucets {
		lines = append(lines, "Faucet: "+u)
	}
	return lines
}

// Package providers initializes and registers all concrete data providers
// with the global provider registry.
package providers

import (
	"os"

	"github.com/hodlsight/hodlsight/internal/provider"
	"github.com/hodlsight/hodlsight/internal/providers/blockchain"
	"github.com/hodlsight/hodlsight/internal/providers/coingecko"
	"github.com/hodlsight/hodlsight/internal/providers/edgar"
	"github.com/hodlsight/hodlsight/internal/providers/stooq"
)

// RegisterAll creates and registers all available providers with the global
// registry. None of them require an API key; the CoinGecko demo key is
// picked up from the environment when present.
func RegisterAll() error {
	return RegisterAllTo(provider.Global())
}

// RegisterAllTo registers all available providers to the given registry.
func RegisterAllTo(reg *provider.Registry) error {
	ed := edgar.New()
	if err := ed.Init(nil); err != nil {
		return err
	}
	if err := reg.Register(ed); err != nil {
		return err
	}

	sq := stooq.New()
	if err := sq.Init(nil); err != nil {
		return err
	}
	if err := reg.Register(sq); err != nil {
		return err
	}

	cg := coingecko.New()
	creds := map[string]string{}
	if key := os.Getenv("COINGECKO_API_KEY"); key != "" {
		creds["api_key"] = key
	}
	if err := cg.Init(creds); err != nil {
		return err
	}
	if err := reg.Register(cg); err != nil {
		return err
	}

	bc := blockchain.New()
	if err := bc.Init(nil); err != nil {
		return err
	}
	if err := reg.Register(bc); err != nil {
		return err
	}

	return nil
}

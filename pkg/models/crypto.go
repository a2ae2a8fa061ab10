package models

import "time"

// CoinMarket is a spot market snapshot for one coin, passed through from the
// upstream market-data service for the site's widgets.
type CoinMarket struct {
	ID           string    `json:"id"` // upstream coin id, e.g. "bitcoin"
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name"`
	PriceUSD     float64   `json:"price_usd"`
	MarketCapUSD float64   `json:"market_cap_usd"`
	Volume24hUSD float64   `json:"volume_24h_usd"`
	ChangePct24h float64   `json:"change_pct_24h"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HalvingCountdown describes progress toward the next Bitcoin halving.
type HalvingCountdown struct {
	CurrentHeight   int64     `json:"current_height"`
	HalvingHeight   int64     `json:"halving_height"` // next multiple of the halving interval
	BlocksRemaining int64     `json:"blocks_remaining"`
	EstimatedAt     time.Time `json:"estimated_at"` // at the average block interval
	FetchedAt       time.Time `json:"fetched_at"`
}

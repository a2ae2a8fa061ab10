package provider

// ModelType names a standard data model. Each maps to a data structure in
// pkg/models/.
type ModelType string

// --- Filings ---
const (
	ModelCompanyFilings ModelType = "CompanyFilings" // []models.FilingReference
	ModelFilingDocument ModelType = "FilingDocument" // string (raw markup)
	ModelFilingFeed     ModelType = "FilingFeed"     // []models.FilingFeedItem
)

// --- Market data ---
const (
	ModelCryptoHistorical ModelType = "CryptoHistorical" // models.TimeSeries
	ModelCoinMarket       ModelType = "CoinMarket"       // *models.CoinMarket
	ModelBlockHeight      ModelType = "BlockHeight"      // *models.HalvingCountdown
)

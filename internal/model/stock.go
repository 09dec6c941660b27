package model

// StockResult is one blood bank row as reported by the stock source.
// Values are free text; nothing is parsed.
type StockResult struct {
	BloodBankName string `json:"blood_bank_name"`
	Category      string `json:"category"`
	Availability  string `json:"availability"`
	LastUpdated   string `json:"last_updated"`
}

// StockQuery is a fully resolved code tuple for a stock lookup.
type StockQuery struct {
	StateCode          string
	DistrictCode       string
	BloodGroupCode     string
	BloodComponentCode string // optional
}

package nse

import "time"

// EquityQuote is the normalized quote-equity payload
type EquityQuote struct {
	Symbol         string
	CompanyName    string
	Industry       string
	LastPrice      float64
	PreviousClose  float64
	Change         float64
	PChange        float64
	Open           float64
	High           float64
	Low            float64
	QuantityTraded int64
	FetchedAt      time.Time
}

// ChartPoint is one [epochMillis, price] pair of chart-databyindex
type ChartPoint struct {
	Time  time.Time
	Price float64
}

// quoteEquityResponse mirrors the quote-equity JSON. Pointers distinguish
// missing fields from zeros.
type quoteEquityResponse struct {
	Info *struct {
		Symbol      string `json:"symbol"`
		CompanyName string `json:"companyName"`
	} `json:"info"`
	Metadata *struct {
		Industry string `json:"industry"`
	} `json:"metadata"`
	PriceInfo *struct {
		LastPrice       *float64 `json:"lastPrice"`
		Change          *float64 `json:"change"`
		PChange         *float64 `json:"pChange"`
		PreviousClose   *float64 `json:"previousClose"`
		Open            *float64 `json:"open"`
		IntraDayHighLow *struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"intraDayHighLow"`
	} `json:"priceInfo"`
	SecurityWiseDP *struct {
		QuantityTraded *float64 `json:"quantityTraded"`
	} `json:"securityWiseDP"`
}

// chartResponse mirrors chart-databyindex. The misspelled key is the API's.
type chartResponse struct {
	Name      string       `json:"name"`
	GraphData [][2]float64 `json:"grapthData"`
}

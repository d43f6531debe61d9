package models

import "time"

// MarketPrice is an APMC mandi price report, in rupees per quintal
type MarketPrice struct {
	PriceID     string    `json:"price_id"`
	Commodity   string    `json:"commodity"`
	Variety     string    `json:"variety,omitempty"`
	Market      string    `json:"market"`
	District    string    `json:"district,omitempty"`
	State       string    `json:"state"`
	MinPrice    float64   `json:"min_price"`
	MaxPrice    float64   `json:"max_price"`
	ModalPrice  float64   `json:"modal_price"`
	ArrivalDate time.Time `json:"arrival_date"`
}

// MSPRate is a government minimum support price, in rupees per quintal
type MSPRate struct {
	MSPID     string  `json:"msp_id"`
	Commodity string  `json:"commodity"`
	Season    string  `json:"season"`
	Year      string  `json:"year"`
	Price     float64 `json:"price"`
}

// PriceFilter narrows price listings; empty fields match anything
type PriceFilter struct {
	Commodity string
	State     string
	Market    string
	Season    string
	Year      string
	Page      Page
}

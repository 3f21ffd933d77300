package models

// Requests for the dashboard HTTP endpoints.

type SessionRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

type SelectMarketRequest struct {
	ID     string `param:"id" validate:"required,uuid"`
	Market string `json:"market" validate:"required,oneof=stocks futures crypto"`
}

type SelectTickerRequest struct {
	ID     string `param:"id" validate:"required,uuid"`
	Ticker string `json:"ticker" validate:"omitempty,max=32"`
}

type SelectTimeframeRequest struct {
	ID        string `param:"id" validate:"required,uuid"`
	Timeframe string `json:"timeframe" validate:"required,oneof=5min 15min 1h 1d"`
}

type SelectTabRequest struct {
	ID  string `param:"id" validate:"required,uuid"`
	Tab string `json:"tab" default:"predict" validate:"oneof=predict track"`
}

type CreateSessionRequest struct {
	Market    string `json:"market" validate:"omitempty,oneof=stocks futures crypto"`
	Ticker    string `json:"ticker" validate:"omitempty,max=32"`
	Timeframe string `json:"timeframe" validate:"omitempty,oneof=5min 15min 1h 1d"`
	Tab       string `json:"tab" default:"predict" validate:"oneof=predict track"`
}

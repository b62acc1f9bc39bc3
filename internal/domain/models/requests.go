package models

// Requests for the HTTP transport. Defaults are applied before validation.

type SignalRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,min=2,max=20"`
}

type SignalHistoryRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,min=2,max=20"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type BatchSignalRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,max=20,dive,min=2,max=20"`
}

package models

import "errors"

var (
	ErrInvalidCommodityID = errors.New("invalid commodity id")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidWindow      = errors.New("invalid window")
	ErrInvalidInterval    = errors.New("invalid interval")
	ErrInvalidChangeType  = errors.New("invalid change type")
	ErrInvalidDirection   = errors.New("invalid direction")
	ErrInvalidNewsItem    = errors.New("invalid news item")
	ErrInvalidRunID       = errors.New("invalid run id")
	ErrInvalidRunStatus   = errors.New("invalid run status")
	ErrMissingColumn      = errors.New("required column missing")
	ErrEmptyTable         = errors.New("table has no data rows")
	ErrNoObservations     = errors.New("no price observations")
	ErrUnknownCommodity   = errors.New("unknown commodity")
)

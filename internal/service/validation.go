package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// parseAmount parses a non-negative money amount. Problems are added to verr.
func parseAmount(verr *ValidationError, field, raw string, required bool) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			verr.Add(field, "is required")
		}
		return decimal.Zero
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		verr.Add(field, "must be a number")
		return decimal.Zero
	}
	if value.IsNegative() {
		verr.Add(field, "must not be negative")
		return decimal.Zero
	}
	return value
}

// parseTaxRate parses an optional percentage between 0 and 100
func parseTaxRate(verr *ValidationError, field, raw string) decimal.Decimal {
	rate := parseAmount(verr, field, raw, false)
	if rate.GreaterThan(decimal.NewFromInt(100)) {
		verr.Add(field, "must be at most 100")
		return decimal.Zero
	}
	return rate
}

func requireID(verr *ValidationError, field string, id uuid.UUID) {
	if id == uuid.Nil {
		verr.Add(field, "is required")
	}
}

package services

import (
	"strings"

	"accident-analytics/models"
)

// Severity codes as published in the source codebook.
const (
	SeverityPropertyDamage = 1
	SeverityInjury         = 2
	SeverityFatality       = 3
)

// DefineTarget maps a raw severity code to the binary target:
// 1 (property damage only) → TargetLow, 2 or 3 (injury, fatality) →
// TargetHigh. Codes outside {1,2,3} yield TargetUndefined and a
// *models.TargetDefinitionError; they are never assigned a class.
func DefineTarget(code string) (models.Target, error) {
	if n, ok := parseIntegral(strings.TrimSpace(code)); ok {
		switch n {
		case SeverityPropertyDamage:
			return models.TargetLow, nil
		case SeverityInjury, SeverityFatality:
			return models.TargetHigh, nil
		}
	}
	return models.TargetUndefined, &models.TargetDefinitionError{Code: code}
}

package classifier

type Severity string

const (
	Nominal  Severity = "nominal"
	Warning  Severity = "warning"
	Critical Severity = "critical"
)

// Confidence thresholds, in percent.
const (
	NominalThreshold = 70
	WarningThreshold = 50
)

func SeverityFor(confidence float64) Severity {
	switch {
	case confidence >= NominalThreshold:
		return Nominal
	case confidence >= WarningThreshold:
		return Warning
	default:
		return Critical
	}
}

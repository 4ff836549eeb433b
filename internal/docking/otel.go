package docking

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/dockyard/internal/docking"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Package workflows defines the classifier-routed graphs the service ships.
package workflows

import (
	"errors"
	"log/slog"

	"github.com/randalmurphal/triage/pkg/triage"
	"github.com/randalmurphal/triage/pkg/triage/classifier"
	"github.com/randalmurphal/triage/pkg/triage/registry"
)

// Graph names, as used in URLs and on the command line.
const (
	CustomerService   = "customerService"
	DeviceOps         = "deviceOps"
	RecommendedPlaces = "recommendedPlaces"
)

// Replies used when a run finishes without a solution.
const (
	NoSolution          = "No solution"
	NoPlacesRecommended = "No places recommended"
)

// ErrNilClassifier is returned when a graph is built without a classifier.
var ErrNilClassifier = errors.New("workflows: classifier is nil")

// Constructor builds one shipped graph around a classifier.
type Constructor func(c classifier.Classifier) (*triage.CompiledGraph, error)

// Definition describes a shipped graph.
type Definition struct {
	Name string
	// Fallback is returned to callers when the run leaves no solution.
	Fallback string
	Build    Constructor
}

// Definitions lists every shipped graph.
func Definitions() []Definition {
	return []Definition{
		{Name: CustomerService, Fallback: NoSolution, Build: NewCustomerService},
		{Name: DeviceOps, Fallback: NoSolution, Build: NewDeviceOps},
		{Name: RecommendedPlaces, Fallback: NoPlacesRecommended, Build: NewRecommendedPlaces},
	}
}

// FallbackFor returns the reply for the named graph when its run never
// wrote a solution.
func FallbackFor(name string) string {
	for _, d := range Definitions() {
		if d.Name == name {
			return d.Fallback
		}
	}
	return NoSolution
}

// RegisterAll builds every shipped graph into reg.
// A graph that fails to build is logged and left unregistered; the
// failures are returned joined so callers may decide whether to go on.
func RegisterAll(reg *registry.Registry, logger *slog.Logger, c classifier.Classifier) error {
	var errs []error
	for _, d := range Definitions() {
		build := d.Build
		if err := reg.Build(logger, d.Name, func() (*triage.CompiledGraph, error) {
			return build(c)
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package extract

import (
	"context"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"osmextract/filter"
	"osmextract/metrics"
	ownOsm "osmextract/osm"
	"osmextract/region"
	"sort"
	"strconv"
	"time"
)

const StrategyName = "simple"

const (
	OptionReferences    = "references"
	OptionNodeCapacity  = "node-capacity"
	OptionNodeErrorRate = "node-error-rate"
	OptionWayCapacity   = "way-capacity"
	OptionWayErrorRate  = "way-error-rate"
)

// ReferencePolicy determines which references of a way or relation are tested against the ID filters.
type ReferencePolicy int

const (
	// AnyReference includes a way or relation as soon as any of its node or way references is known.
	AnyReference ReferencePolicy = iota
	// FirstReferenceOnly only tests the first node reference of a way and the first node or way member of a relation.
	// Later references are never looked at, so an object whose first reference is outside all regions is dropped even
	// if other references are inside. Relation members of other kinds are skipped.
	FirstReferenceOnly
)

func (p ReferencePolicy) String() string {
	switch p {
	case AnyReference:
		return "any"
	case FirstReferenceOnly:
		return "first"
	}
	return "unknown"
}

func ParseReferencePolicy(value string) (ReferencePolicy, error) {
	switch value {
	case "any":
		return AnyReference, nil
	case "first":
		return FirstReferenceOnly, nil
	}
	return AnyReference, errors.Errorf("Unknown reference policy '%s', expected 'any' or 'first'", value)
}

// Strategy extracts all regions in one single pass over sorted input data. It doesn't keep exact ID sets but only
// approximate membership filters, which means that some objects outside a region might end up in its output.
type Strategy struct {
	regions       []*region.Region
	policy        ReferencePolicy
	nodeCapacity  uint
	nodeErrorRate float64
	wayCapacity   uint
	wayErrorRate  float64
	Metrics       *metrics.ExtractMetrics
}

// NewStrategy creates the strategy for the given regions. Unknown options are ignored with a warning, invalid values
// of known options result in an error.
func NewStrategy(regions []*region.Region, options map[string]string) (*Strategy, error) {
	strategy := &Strategy{
		regions:       regions,
		policy:        AnyReference,
		nodeCapacity:  filter.DefaultNodeCapacity,
		nodeErrorRate: filter.DefaultNodeErrorRate,
		wayCapacity:   filter.DefaultWayCapacity,
		wayErrorRate:  filter.DefaultWayErrorRate,
		Metrics:       metrics.NewExtractMetrics(),
	}

	// Sorted to get a stable order of warnings
	var keys []string
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var err error
	for _, key := range keys {
		value := options[key]
		switch key {
		case OptionReferences:
			strategy.policy, err = ParseReferencePolicy(value)
		case OptionNodeCapacity:
			strategy.nodeCapacity, err = parseCapacity(key, value)
		case OptionNodeErrorRate:
			strategy.nodeErrorRate, err = parseErrorRate(key, value)
		case OptionWayCapacity:
			strategy.wayCapacity, err = parseCapacity(key, value)
		case OptionWayErrorRate:
			strategy.wayErrorRate, err = parseErrorRate(key, value)
		default:
			sigolo.Warnf("Ignoring unknown option '%s' for '%s' strategy", key, StrategyName)
		}
		if err != nil {
			return nil, err
		}
	}

	return strategy, nil
}

func parseCapacity(key string, value string) (uint, error) {
	capacity, err := strconv.ParseUint(value, 10, 64)
	if err != nil || capacity == 0 {
		return 0, errors.Errorf("Option '%s' must be a positive integer but was '%s'", key, value)
	}
	return uint(capacity), nil
}

func parseErrorRate(key string, value string) (float64, error) {
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil || rate <= 0 || rate >= 1 {
		return 0, errors.Errorf("Option '%s' must be a number between 0 and 1 (both exclusive) but was '%s'", key, value)
	}
	return rate, nil
}

func (s *Strategy) Name() string {
	return StrategyName
}

func (s *Strategy) Regions() []*region.Region {
	return s.regions
}

func (s *Strategy) ReferencePolicy() ReferencePolicy {
	return s.policy
}

// NewPass creates a new pass with fresh and empty ID filters.
func (s *Strategy) NewPass(validator OrderValidator) *Pass {
	return newPass(s, validator)
}

// Run processes the given input file and closes all regions afterward, regardless of whether the extraction
// succeeded.
func (s *Strategy) Run(ctx context.Context, inputFile string) error {
	sigolo.Infof("Running '%s' strategy in one pass with reference policy '%s'", StrategyName, s.policy)
	startTime := time.Now()

	pass := s.NewPass(ownOsm.NewOrderChecker())
	err := ownOsm.NewOsmReader().Read(ctx, inputFile, ownOsm.NewProgressLogger(ownOsm.DefaultProgressInterval), pass)

	closeErr := s.Close()
	if err != nil {
		return errors.Wrapf(err, "Extraction of file %s failed", inputFile)
	}
	if closeErr != nil {
		return closeErr
	}

	sigolo.Infof("Extracted %d regions in %s", len(s.regions), time.Since(startTime))
	return nil
}

// Close closes the sinks of all regions. The first error is returned, later regions are closed anyway.
func (s *Strategy) Close() error {
	var firstErr error
	for _, r := range s.regions {
		err := r.Close()
		if err != nil {
			sigolo.Errorf("%+v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

package extract

import (
	"bytes"
	"context"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"os"
	ownOsm "osmextract/osm"
	"osmextract/region"
	"osmextract/util"
	"path"
	"testing"
)

const testInput = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="0.5" lon="0.5" version="1"/>
  <node id="2" lat="5.5" lon="5.5" version="1"/>
  <node id="3" lat="0.7" lon="0.7" version="1">
    <tag k="amenity" v="bench"/>
  </node>
  <way id="10" version="1">
    <nd ref="1"/>
    <nd ref="2"/>
  </way>
  <way id="11" version="1">
    <nd ref="2"/>
    <nd ref="3"/>
  </way>
  <relation id="100" version="1">
    <member type="way" ref="10" role="outer"/>
  </relation>
  <relation id="101" version="1">
    <member type="node" ref="2" role=""/>
  </relation>
</osm>`

func TestNewStrategy_defaults(t *testing.T) {
	// Act
	strategy, err := NewStrategy(nil, nil)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, "simple", strategy.Name())
	util.AssertEqual(t, AnyReference, strategy.ReferencePolicy())
	util.AssertEqual(t, uint(1_000_000), strategy.nodeCapacity)
	util.AssertEqual(t, 0.001, strategy.nodeErrorRate)
	util.AssertEqual(t, uint(1_000_000), strategy.wayCapacity)
	util.AssertEqual(t, 0.01, strategy.wayErrorRate)
}

func TestNewStrategy_options(t *testing.T) {
	// Act
	strategy, err := NewStrategy(nil, map[string]string{
		OptionReferences:    "first",
		OptionNodeCapacity:  "5000",
		OptionNodeErrorRate: "0.0001",
		OptionWayCapacity:   "200",
		OptionWayErrorRate:  "0.05",
	})

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, FirstReferenceOnly, strategy.ReferencePolicy())
	util.AssertEqual(t, uint(5000), strategy.nodeCapacity)
	util.AssertEqual(t, 0.0001, strategy.nodeErrorRate)
	util.AssertEqual(t, uint(200), strategy.wayCapacity)
	util.AssertEqual(t, 0.05, strategy.wayErrorRate)
}

func TestNewStrategy_unknownOptionIsIgnored(t *testing.T) {
	// Arrange
	regions := []*region.Region{newTestRegion("a", 0, 0, 1, 1)}

	// Act
	withUnknown, err := NewStrategy(regions, map[string]string{"foo": "bar", OptionReferences: "first"})
	util.AssertNil(t, err)
	without, err := NewStrategy(regions, map[string]string{OptionReferences: "first"})
	util.AssertNil(t, err)

	// Assert
	util.AssertEqual(t, without.regions, withUnknown.regions)
	util.AssertEqual(t, without.policy, withUnknown.policy)
	util.AssertEqual(t, without.nodeCapacity, withUnknown.nodeCapacity)
	util.AssertEqual(t, without.nodeErrorRate, withUnknown.nodeErrorRate)
	util.AssertEqual(t, without.wayCapacity, withUnknown.wayCapacity)
	util.AssertEqual(t, without.wayErrorRate, withUnknown.wayErrorRate)
}

func TestNewStrategy_invalidOptionValues(t *testing.T) {
	_, err := NewStrategy(nil, map[string]string{OptionReferences: "some"})
	util.AssertError(t, "Unknown reference policy 'some', expected 'any' or 'first'", err)

	_, err = NewStrategy(nil, map[string]string{OptionNodeCapacity: "-1"})
	util.AssertError(t, "Option 'node-capacity' must be a positive integer but was '-1'", err)

	_, err = NewStrategy(nil, map[string]string{OptionWayCapacity: "0"})
	util.AssertNotNil(t, err)

	_, err = NewStrategy(nil, map[string]string{OptionNodeErrorRate: "1.5"})
	util.AssertError(t, "Option 'node-error-rate' must be a number between 0 and 1 (both exclusive) but was '1.5'", err)

	_, err = NewStrategy(nil, map[string]string{OptionWayErrorRate: "abc"})
	util.AssertNotNil(t, err)
}

func TestParseReferencePolicy(t *testing.T) {
	policy, err := ParseReferencePolicy("any")
	util.AssertNil(t, err)
	util.AssertEqual(t, AnyReference, policy)
	util.AssertEqual(t, "any", policy.String())

	policy, err = ParseReferencePolicy("first")
	util.AssertNil(t, err)
	util.AssertEqual(t, FirstReferenceOnly, policy)
	util.AssertEqual(t, "first", policy.String())
}

func TestStrategy_Run(t *testing.T) {
	// Arrange
	folder := t.TempDir()
	inputFile := path.Join(folder, "input.osm")
	err := os.WriteFile(inputFile, []byte(testInput), 0644)
	util.AssertNil(t, err)

	sinkA := region.NewMemorySink()
	sinkB := region.NewMemorySink()
	strategy, err := NewStrategy([]*region.Region{
		region.New("a", orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, sinkA),
		region.New("b", orb.Bound{Min: orb.Point{5, 5}, Max: orb.Point{6, 6}}, sinkB),
	}, nil)
	util.AssertNil(t, err)

	// Act
	err = strategy.Run(context.Background(), inputFile)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, []string{"node/1", "node/3", "way/10", "way/11", "relation/100", "relation/101"}, objectNames(sinkA))
	util.AssertEqual(t, []string{"node/2", "way/10", "way/11", "relation/100", "relation/101"}, objectNames(sinkB))
	util.AssertTrue(t, sinkA.Closed)
	util.AssertTrue(t, sinkB.Closed)

	util.AssertEqual(t, 3.0, testutil.ToFloat64(strategy.Metrics.EntitiesRead.WithLabelValues("node")))
	util.AssertEqual(t, 2.0, testutil.ToFloat64(strategy.Metrics.EntitiesWritten.WithLabelValues("a", "node")))
	util.AssertEqual(t, 1.0, testutil.ToFloat64(strategy.Metrics.EntitiesWritten.WithLabelValues("b", "node")))
	util.AssertEqual(t, 2.0, testutil.ToFloat64(strategy.Metrics.EntitiesWritten.WithLabelValues("b", "relation")))
}

func TestStrategy_Run_firstReferenceOnly(t *testing.T) {
	// Arrange
	inputFile := path.Join(t.TempDir(), "input.osm")
	err := os.WriteFile(inputFile, []byte(testInput), 0644)
	util.AssertNil(t, err)

	sink := region.NewMemorySink()
	strategy, err := NewStrategy([]*region.Region{
		region.New("a", orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, sink),
	}, map[string]string{OptionReferences: "first"})
	util.AssertNil(t, err)

	// Act
	err = strategy.Run(context.Background(), inputFile)

	// Assert
	util.AssertNil(t, err)
	// Way 11 starts with node 2 which is outside, relation 101 only references node 2.
	util.AssertEqual(t, []string{"node/1", "node/3", "way/10", "relation/100"}, objectNames(sink))
}

func TestStrategy_Run_idempotent(t *testing.T) {
	// Arrange
	inputFile := path.Join(t.TempDir(), "input.osm")
	err := os.WriteFile(inputFile, []byte(testInput), 0644)
	util.AssertNil(t, err)

	run := func() string {
		buffer := &bytes.Buffer{}
		strategy, err := NewStrategy([]*region.Region{
			region.New("a", orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, region.NewXmlSink(buffer)),
		}, nil)
		util.AssertNil(t, err)
		util.AssertNil(t, strategy.Run(context.Background(), inputFile))
		return buffer.String()
	}

	// Act
	first := run()
	second := run()

	// Assert
	util.AssertMatch(t, `<node id="3"`, first)
	util.AssertEqual(t, first, second)
}

func TestStrategy_Run_unorderedInput(t *testing.T) {
	// Arrange
	inputFile := path.Join(t.TempDir(), "input.osm")
	err := os.WriteFile(inputFile, []byte(`<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="5" lat="0.5" lon="0.5" version="1"/>
  <node id="3" lat="0.5" lon="0.5" version="1"/>
  <way id="10" version="1">
    <nd ref="5"/>
  </way>
</osm>`), 0644)
	util.AssertNil(t, err)

	sink := region.NewMemorySink()
	strategy, err := NewStrategy([]*region.Region{
		region.New("a", orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, sink),
	}, nil)
	util.AssertNil(t, err)

	// Act
	err = strategy.Run(context.Background(), inputFile)

	// Assert
	util.AssertNotNil(t, err)
	util.AssertTrue(t, ownOsm.IsOrderViolation(err))
	util.AssertEqual(t, []string{"node/5"}, objectNames(sink))
	util.AssertTrue(t, sink.Closed)
	util.AssertEqual(t, 1.0, testutil.ToFloat64(strategy.Metrics.OrderViolations))
}

func TestStrategy_Run_missingFile(t *testing.T) {
	sink := region.NewMemorySink()
	strategy, err := NewStrategy([]*region.Region{newTestRegionWithSink("a", sink)}, nil)
	util.AssertNil(t, err)

	err = strategy.Run(context.Background(), path.Join(t.TempDir(), "missing.osm"))

	util.AssertNotNil(t, err)
	util.AssertTrue(t, sink.Closed)
}

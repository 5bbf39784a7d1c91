package region

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// Sink is the append-only output of a region. Objects are written in the order they are observed in the input.
type Sink interface {
	Write(obj osm.Object) error
	Close() error
}

// Region is a named extraction target. Its geometry decides which nodes belong to it, all written objects go into
// the sink.
type Region struct {
	Name     string
	Geometry orb.Geometry
	Sink     Sink
	bound    orb.Bound
}

func New(name string, geometry orb.Geometry, sink Sink) *Region {
	return &Region{
		Name:     name,
		Geometry: geometry,
		Sink:     sink,
		bound:    geometry.Bound(),
	}
}

// Contains determines whether the given position is within the geometry of this region. Points on the boundary of a
// bounding box are inside.
func (r *Region) Contains(point orb.Point) bool {
	if !r.bound.Contains(point) {
		return false
	}

	switch geometry := r.Geometry.(type) {
	case orb.Bound:
		return true
	case orb.Ring:
		return planar.RingContains(geometry, point)
	case orb.Polygon:
		return planar.PolygonContains(geometry, point)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geometry, point)
	}

	return false
}

func (r *Region) Write(obj osm.Object) error {
	err := r.Sink.Write(obj)
	if err != nil {
		return errors.Wrapf(err, "Unable to write %s to region '%s'", obj.ObjectID(), r.Name)
	}
	return nil
}

func (r *Region) Close() error {
	err := r.Sink.Close()
	if err != nil {
		return errors.Wrapf(err, "Unable to close output of region '%s'", r.Name)
	}
	return nil
}

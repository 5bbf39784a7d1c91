package osm

import (
	"context"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"os"
	"strings"
	"time"
)

type OsmDataHandler interface {
	Name() string
	Init() error
	HandleNode(node *osm.Node) error
	HandleWay(way *osm.Way) error
	HandleRelation(relation *osm.Relation) error
	Done() error
}

// OsmReader drives one forward pass over OSM data. Every object is given to all handlers (in the order of the
// handlers) before the next object is read.
type OsmReader struct {
	firstWayHasBeenProcessed      bool
	firstRelationHasBeenProcessed bool
}

func NewOsmReader() *OsmReader {
	return &OsmReader{
		firstWayHasBeenProcessed:      false,
		firstRelationHasBeenProcessed: false,
	}
}

// Read opens the given .osm or .pbf file and processes it with the given handlers.
func (r *OsmReader) Read(ctx context.Context, filename string, handlers ...OsmDataHandler) error {
	if !strings.HasSuffix(filename, ".osm") && !strings.HasSuffix(filename, ".pbf") {
		return errors.Errorf("Input file %s must be an .osm or .pbf file", filename)
	}

	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to open OSM input file %s", filename)
	}
	defer file.Close()

	var scanner osm.Scanner
	if strings.HasSuffix(filename, ".osm") {
		scanner = osmxml.New(ctx, file)
	} else {
		scanner = osmpbf.New(ctx, file, 1)
	}

	sigolo.Infof("Start processing OSM data file %s", filename)
	importStartTime := time.Now()

	err = r.ReadFrom(scanner, handlers...)
	if err != nil {
		return err
	}

	importDuration := time.Since(importStartTime)
	sigolo.Infof("Done processing OSM data in %s", importDuration)

	return nil
}

// ReadFrom processes all objects of the given scanner with the given handlers. The scanner is closed afterwards. The
// first error returned by a handler stops the processing, no further object is handed to any handler.
func (r *OsmReader) ReadFrom(scanner osm.Scanner, handlers ...OsmDataHandler) error {
	defer scanner.Close()

	var err error
	for _, handler := range handlers {
		err = handler.Init()
		if err != nil {
			return errors.Wrapf(err, "Initializing OSM data handler '%s' failed", handler.Name())
		}
	}

	sigolo.Debug("Start processing nodes (1/3)")
	for scanner.Scan() {
		switch osmObj := scanner.Object().(type) {
		case *osm.Node:
			for _, handler := range handlers {
				err = handler.HandleNode(osmObj)
				if err != nil {
					return errors.Wrapf(err, "Handling node %d using handler '%s' failed", osmObj.ID, handler.Name())
				}
			}
		case *osm.Way:
			if !r.firstWayHasBeenProcessed {
				sigolo.Debug("Start processing ways (2/3)")
				r.firstWayHasBeenProcessed = true
			}

			for _, handler := range handlers {
				err = handler.HandleWay(osmObj)
				if err != nil {
					return errors.Wrapf(err, "Handling way %d using handler '%s' failed", osmObj.ID, handler.Name())
				}
			}
		case *osm.Relation:
			if !r.firstRelationHasBeenProcessed {
				sigolo.Debug("Start processing relations (3/3)")
				r.firstRelationHasBeenProcessed = true
			}

			for _, handler := range handlers {
				err = handler.HandleRelation(osmObj)
				if err != nil {
					return errors.Wrapf(err, "Handling relation %d using handler '%s' failed", osmObj.ID, handler.Name())
				}
			}
		}
	}

	err = scanner.Err()
	if err != nil {
		return errors.Wrapf(err, "Unable to read OSM data")
	}

	for _, handler := range handlers {
		err = handler.Done()
		if err != nil {
			return errors.Wrapf(err, "Calling done function on handler '%s' failed", handler.Name())
		}
	}

	return nil
}

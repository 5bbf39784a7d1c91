package osm

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/osm"
	"time"
)

const DefaultProgressInterval = 1_000_000

// ProgressLogger is a handler that only counts the processed objects and logs the progress every now and then. It has
// no influence on the processing of other handlers.
type ProgressLogger struct {
	Interval      int
	NodeCount     int
	WayCount      int
	RelationCount int
	startTime     time.Time
}

func NewProgressLogger(interval int) *ProgressLogger {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &ProgressLogger{
		Interval: interval,
	}
}

func (p *ProgressLogger) Name() string {
	return "ProgressLogger"
}

func (p *ProgressLogger) Init() error {
	p.startTime = time.Now()
	return nil
}

func (p *ProgressLogger) HandleNode(node *osm.Node) error {
	p.NodeCount++
	p.logIfNeeded(OsmObjNode, p.NodeCount)
	return nil
}

func (p *ProgressLogger) HandleWay(way *osm.Way) error {
	p.WayCount++
	p.logIfNeeded(OsmObjWay, p.WayCount)
	return nil
}

func (p *ProgressLogger) HandleRelation(relation *osm.Relation) error {
	p.RelationCount++
	p.logIfNeeded(OsmObjRelation, p.RelationCount)
	return nil
}

func (p *ProgressLogger) Done() error {
	sigolo.Infof("Processed %d nodes, %d ways and %d relations in %s", p.NodeCount, p.WayCount, p.RelationCount, time.Since(p.startTime))
	return nil
}

func (p *ProgressLogger) logIfNeeded(objectType OsmObjectType, count int) {
	if count%p.Interval == 0 {
		sigolo.Debugf("Processed %d %ss after %s", count, objectType, time.Since(p.startTime))
	}
}

package extract

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/prometheus/client_golang/prometheus"
	"osmextract/filter"
	ownOsm "osmextract/osm"
	"osmextract/region"
)

// OrderValidator checks that the objects arrive in the order of a sorted OSM file.
type OrderValidator interface {
	CheckNode(node *osm.Node) error
	CheckWay(way *osm.Way) error
	CheckRelation(relation *osm.Relation) error
}

// Pass is one forward pass over sorted OSM data. Nodes within a region are written to that region and their IDs are
// remembered. Ways and relations are written to a region when they reference a remembered node or way.
//
// The two ID filters are shared by all regions and carry no region identity. A way referencing a node of region A is
// therefore written to region B as well. This trades region isolation for memory.
type Pass struct {
	strategy  *Strategy
	validator OrderValidator
	nodeIds   *filter.MembershipFilter
	wayIds    *filter.MembershipFilter

	// Set once processing failed. No object is processed afterward.
	err error

	nodesRead     prometheus.Counter
	waysRead      prometheus.Counter
	relationsRead prometheus.Counter
	written       []regionCounters
}

type regionCounters struct {
	nodes     prometheus.Counter
	ways      prometheus.Counter
	relations prometheus.Counter
}

func newPass(strategy *Strategy, validator OrderValidator) *Pass {
	m := strategy.Metrics

	var written []regionCounters
	for _, r := range strategy.regions {
		written = append(written, regionCounters{
			nodes:     m.EntitiesWritten.WithLabelValues(r.Name, ownOsm.OsmObjNode.String()),
			ways:      m.EntitiesWritten.WithLabelValues(r.Name, ownOsm.OsmObjWay.String()),
			relations: m.EntitiesWritten.WithLabelValues(r.Name, ownOsm.OsmObjRelation.String()),
		})
	}

	return &Pass{
		strategy:      strategy,
		validator:     validator,
		nodeIds:       filter.New(strategy.nodeCapacity, strategy.nodeErrorRate),
		wayIds:        filter.New(strategy.wayCapacity, strategy.wayErrorRate),
		nodesRead:     m.EntitiesRead.WithLabelValues(ownOsm.OsmObjNode.String()),
		waysRead:      m.EntitiesRead.WithLabelValues(ownOsm.OsmObjWay.String()),
		relationsRead: m.EntitiesRead.WithLabelValues(ownOsm.OsmObjRelation.String()),
		written:       written,
	}
}

func (p *Pass) Name() string {
	return StrategyName + "-extract-pass"
}

func (p *Pass) Init() error {
	sigolo.Debugf("Node ID filter: capacity=%d, error rate=%f, bits=%d", p.nodeIds.Capacity(), p.nodeIds.ErrorRate(), p.nodeIds.BitCount())
	sigolo.Debugf("Way ID filter: capacity=%d, error rate=%f, bits=%d", p.wayIds.Capacity(), p.wayIds.ErrorRate(), p.wayIds.BitCount())
	return nil
}

// Err returns the error that stopped this pass or nil.
func (p *Pass) Err() error {
	return p.err
}

func (p *Pass) HandleNode(node *osm.Node) error {
	if p.err != nil {
		return p.err
	}

	err := p.validator.CheckNode(node)
	if err != nil {
		return p.fail(err)
	}
	p.nodesRead.Inc()

	for i, r := range p.strategy.regions {
		err = p.handleNodeForRegion(i, r, node)
		if err != nil {
			return p.fail(err)
		}
	}

	return nil
}

func (p *Pass) handleNodeForRegion(regionIndex int, r *region.Region, node *osm.Node) error {
	if !r.Contains(orb.Point{node.Lon, node.Lat}) {
		return nil
	}

	err := r.Write(node)
	if err != nil {
		return err
	}
	p.written[regionIndex].nodes.Inc()

	p.nodeIds.Add(ownOsm.PositiveId(int64(node.ID)))
	return nil
}

func (p *Pass) HandleWay(way *osm.Way) error {
	if p.err != nil {
		return p.err
	}

	err := p.validator.CheckWay(way)
	if err != nil {
		return p.fail(err)
	}
	p.waysRead.Inc()

	// The filters know nothing about regions, so the way is either relevant for all regions or for none.
	if !p.referencesKnownNode(way) {
		return nil
	}

	for i, r := range p.strategy.regions {
		err = r.Write(way)
		if err != nil {
			return p.fail(err)
		}
		p.written[i].ways.Inc()
	}
	p.wayIds.Add(ownOsm.PositiveId(int64(way.ID)))

	return nil
}

func (p *Pass) referencesKnownNode(way *osm.Way) bool {
	for _, wayNode := range way.Nodes {
		if p.nodeIds.Contains(ownOsm.PositiveId(int64(wayNode.ID))) {
			return true
		}
		if p.strategy.policy == FirstReferenceOnly {
			return false
		}
	}
	return false
}

func (p *Pass) HandleRelation(relation *osm.Relation) error {
	if p.err != nil {
		return p.err
	}

	err := p.validator.CheckRelation(relation)
	if err != nil {
		return p.fail(err)
	}
	p.relationsRead.Inc()

	if !p.referencesKnownMember(relation) {
		return nil
	}

	// Relation IDs are not remembered. Relations are the last objects in the input, nothing refers back to them.
	for i, r := range p.strategy.regions {
		err = r.Write(relation)
		if err != nil {
			return p.fail(err)
		}
		p.written[i].relations.Inc()
	}

	return nil
}

func (p *Pass) referencesKnownMember(relation *osm.Relation) bool {
	for _, member := range relation.Members {
		reference := ownOsm.ToMemberReference(member)

		var isKnown bool
		switch reference.Kind {
		case ownOsm.MemberKindNode:
			isKnown = p.nodeIds.Contains(ownOsm.PositiveId(reference.Ref))
		case ownOsm.MemberKindWay:
			isKnown = p.wayIds.Contains(ownOsm.PositiveId(reference.Ref))
		default:
			// Relation members can't be tested and don't count as first reference.
			continue
		}

		if isKnown {
			return true
		}
		if p.strategy.policy == FirstReferenceOnly {
			return false
		}
	}
	return false
}

func (p *Pass) Done() error {
	if p.err != nil {
		return p.err
	}

	nodeIdCount := p.nodeIds.ApproximatedSize()
	wayIdCount := p.wayIds.ApproximatedSize()
	p.strategy.Metrics.FilterSize.WithLabelValues(ownOsm.OsmObjNode.String()).Set(float64(nodeIdCount))
	p.strategy.Metrics.FilterSize.WithLabelValues(ownOsm.OsmObjWay.String()).Set(float64(wayIdCount))

	sigolo.Debugf("Node ID filter holds approx. %d IDs (capacity %d)", nodeIdCount, p.nodeIds.Capacity())
	sigolo.Debugf("Way ID filter holds approx. %d IDs (capacity %d)", wayIdCount, p.wayIds.Capacity())
	if uint(nodeIdCount) > p.nodeIds.Capacity() || uint(wayIdCount) > p.wayIds.Capacity() {
		sigolo.Infof("ID filters are over capacity, the output might contain more unrelated ways and relations than expected")
	}

	return nil
}

func (p *Pass) fail(err error) error {
	if ownOsm.IsOrderViolation(err) {
		p.strategy.Metrics.OrderViolations.Inc()
	}
	p.err = err
	return err
}

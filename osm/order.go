package osm

import (
	"fmt"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// OrderViolationError is returned when the input isn't sorted as required: All nodes before all ways before all
// relations and ascending IDs within each object type. Such input can't be processed in one pass, there's no way to
// recover from it.
type OrderViolationError struct {
	ObjectType   OsmObjectType
	Id           int64
	PreviousType OsmObjectType
	PreviousId   int64
}

func (e *OrderViolationError) Error() string {
	if e.ObjectType != e.PreviousType {
		return fmt.Sprintf("Input data is not ordered: %s %d appears after %s %d (nodes must come before ways, ways before relations)", e.ObjectType, e.Id, e.PreviousType, e.PreviousId)
	}
	return fmt.Sprintf("Input data is not ordered: %s %d appears after %s %d (IDs must be ascending)", e.ObjectType, e.Id, e.PreviousType, e.PreviousId)
}

// IsOrderViolation tells if the given (possibly wrapped) error is caused by unordered input data.
func IsOrderViolation(err error) bool {
	var orderErr *OrderViolationError
	return errors.As(err, &orderErr)
}

// OrderChecker validates that objects arrive in the order of a sorted OSM file. IDs of the same type may repeat but
// never decrease.
type OrderChecker struct {
	hasSeenObject bool
	lastType      OsmObjectType
	lastId        int64
}

func NewOrderChecker() *OrderChecker {
	return &OrderChecker{}
}

func (c *OrderChecker) CheckNode(node *osm.Node) error {
	return c.check(OsmObjNode, int64(node.ID))
}

func (c *OrderChecker) CheckWay(way *osm.Way) error {
	return c.check(OsmObjWay, int64(way.ID))
}

func (c *OrderChecker) CheckRelation(relation *osm.Relation) error {
	return c.check(OsmObjRelation, int64(relation.ID))
}

func (c *OrderChecker) check(objectType OsmObjectType, id int64) error {
	if c.hasSeenObject {
		if objectType < c.lastType || (objectType == c.lastType && id < c.lastId) {
			return &OrderViolationError{
				ObjectType:   objectType,
				Id:           id,
				PreviousType: c.lastType,
				PreviousId:   c.lastId,
			}
		}
	}

	c.hasSeenObject = true
	c.lastType = objectType
	c.lastId = id

	return nil
}

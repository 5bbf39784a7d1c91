package osm

import (
	"fmt"
	"github.com/paulmach/osm"
)

// OsmObjectType is an enum for all the three existing object types in OpenStreetMap. The order of the constants is
// the order in which the object types appear in a sorted OSM file.
type OsmObjectType int

const (
	OsmObjNode OsmObjectType = iota
	OsmObjWay
	OsmObjRelation
)

func (o OsmObjectType) String() string {
	switch o {
	case OsmObjNode:
		return "node"
	case OsmObjWay:
		return "way"
	case OsmObjRelation:
		return "relation"
	}
	panic(fmt.Sprintf("[!UNKNOWN OsmObjectType %d]", o))
}

// MemberKind classifies relation members. Only node and way members can be tested against ID filters, everything
// else is of kind "other".
type MemberKind int

const (
	MemberKindNode MemberKind = iota
	MemberKindWay
	MemberKindOther
)

func (k MemberKind) String() string {
	switch k {
	case MemberKindNode:
		return "node"
	case MemberKindWay:
		return "way"
	case MemberKindOther:
		return "other"
	}
	panic(fmt.Sprintf("[!UNKNOWN MemberKind %d]", k))
}

// MemberReference is the kind and referenced ID of one relation member.
type MemberReference struct {
	Kind MemberKind
	Ref  int64
}

func ToMemberReference(member osm.Member) MemberReference {
	switch member.Type {
	case osm.TypeNode:
		return MemberReference{Kind: MemberKindNode, Ref: member.Ref}
	case osm.TypeWay:
		return MemberReference{Kind: MemberKindWay, Ref: member.Ref}
	}
	return MemberReference{Kind: MemberKindOther, Ref: member.Ref}
}

// PositiveId returns the absolute value of the given ID. Files created by editors may contain negative IDs for new
// objects, filters only store unsigned values.
func PositiveId(id int64) uint64 {
	if id < 0 {
		return uint64(-id)
	}
	return uint64(id)
}

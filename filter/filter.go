package filter

import (
	"encoding/binary"
	"github.com/bits-and-blooms/bloom/v3"
)

const (
	DefaultNodeCapacity  = 1_000_000
	DefaultNodeErrorRate = 0.001
	DefaultWayCapacity   = 1_000_000
	DefaultWayErrorRate  = 0.01
)

// MembershipFilter is an approximate set of OSM IDs. Once an ID has been added, it's always reported as present. IDs
// that have never been added might be reported as present as well, with a probability that approaches the configured
// error rate when the number of added IDs approaches the configured capacity. There's no way to remove IDs.
type MembershipFilter struct {
	bloom     *bloom.BloomFilter
	capacity  uint
	errorRate float64
	buffer    [8]byte
}

func New(expectedCardinality uint, falsePositiveRate float64) *MembershipFilter {
	return &MembershipFilter{
		bloom:     bloom.NewWithEstimates(expectedCardinality, falsePositiveRate),
		capacity:  expectedCardinality,
		errorRate: falsePositiveRate,
	}
}

func (f *MembershipFilter) Add(id uint64) {
	f.bloom.Add(f.encode(id))
}

func (f *MembershipFilter) Contains(id uint64) bool {
	return f.bloom.Test(f.encode(id))
}

// encode writes the ID into the reused buffer. The bloom filter doesn't keep the slice, so reusing it is fine.
func (f *MembershipFilter) encode(id uint64) []byte {
	binary.LittleEndian.PutUint64(f.buffer[:], id)
	return f.buffer[:]
}

// ApproximatedSize estimates the number of added IDs. This is meant for logging only.
func (f *MembershipFilter) ApproximatedSize() uint32 {
	return f.bloom.ApproximatedSize()
}

func (f *MembershipFilter) Capacity() uint {
	return f.capacity
}

func (f *MembershipFilter) ErrorRate() float64 {
	return f.errorRate
}

// BitCount returns the size of the underlying bit storage.
func (f *MembershipFilter) BitCount() uint {
	return f.bloom.Cap()
}

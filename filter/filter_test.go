package filter

import (
	"math/rand"
	"osmextract/util"
	"testing"
)

func TestMembershipFilter_addedIdsArePresent(t *testing.T) {
	// Arrange
	f := New(1000, 0.01)
	ids := []uint64{1, 2, 3, 42, 1_000_000, 1 << 40, 0}

	// Act
	for _, id := range ids {
		f.Add(id)
	}

	// Assert
	for _, id := range ids {
		util.AssertTrue(t, f.Contains(id))
	}
}

func TestMembershipFilter_emptyFilterContainsNothing(t *testing.T) {
	f := New(1000, 0.01)

	for id := uint64(0); id < 1000; id++ {
		util.AssertFalse(t, f.Contains(id))
	}
}

func TestMembershipFilter_addTwice(t *testing.T) {
	// Arrange
	f := New(100, 0.01)

	// Act
	f.Add(123)
	f.Add(123)

	// Assert
	util.AssertTrue(t, f.Contains(123))
}

func TestMembershipFilter_falsePositiveRate(t *testing.T) {
	// Arrange
	capacity := 10_000
	errorRate := 0.01
	f := New(uint(capacity), errorRate)
	random := rand.New(rand.NewSource(1))

	added := map[uint64]bool{}
	for len(added) < capacity {
		id := random.Uint64() >> 1
		added[id] = true
		f.Add(id)
	}

	// Act
	samples := 100_000
	falsePositives := 0
	for i := 0; i < samples; {
		id := random.Uint64() >> 1
		if added[id] {
			continue
		}
		if f.Contains(id) {
			falsePositives++
		}
		i++
	}

	// Assert
	rate := float64(falsePositives) / float64(samples)
	util.AssertTrue(t, rate < errorRate*2)
}

func TestMembershipFilter_overCapacityDegradesGracefully(t *testing.T) {
	// Arrange
	f := New(100, 0.01)

	// Act
	for id := uint64(1); id <= 1000; id++ {
		f.Add(id)
	}

	// Assert
	for id := uint64(1); id <= 1000; id++ {
		util.AssertTrue(t, f.Contains(id))
	}
	util.AssertEqual(t, uint(100), f.Capacity())
	util.AssertEqual(t, 0.01, f.ErrorRate())
}

func TestMembershipFilter_approximatedSize(t *testing.T) {
	// Arrange
	f := New(10_000, 0.001)

	// Act
	for id := uint64(1); id <= 1000; id++ {
		f.Add(id)
	}

	// Assert
	size := f.ApproximatedSize()
	util.AssertTrue(t, size > 900 && size < 1100)
	util.AssertTrue(t, f.BitCount() > 0)
}

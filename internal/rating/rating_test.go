package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierIndex(t *testing.T) {
	tests := []struct {
		rating int
		want   int
	}{
		{0, 0},
		{399, 0},
		{400, 1},
		{799, 1},
		{800, 2},
		{837, 2},
		{1199, 2},
		{1200, 3},
		{2799, 6},
		{2800, 7},
		{4000, 7},
		{-5, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TierIndex(tt.rating), "rating %d", tt.rating)
	}
}

func TestTierIndexMonotonic(t *testing.T) {
	prev := TierIndex(0)
	for r := 1; r <= 5000; r++ {
		idx := TierIndex(r)
		require.GreaterOrEqual(t, idx, prev, "rating %d", r)
		require.LessOrEqual(t, idx, len(Tiers)-1)
		prev = idx
	}
}

func TestTiersTable(t *testing.T) {
	require.Len(t, Tiers, 8)
	for i, tier := range Tiers {
		assert.Equal(t, i*TierStep, tier.LowerBound)
		assert.Equal(t, uint8(255), tier.Color.A)
	}
	assert.Equal(t, uint8(0x80), TierFor(100).Color.R)
	assert.Equal(t, uint8(0x80), TierFor(850).Color.G)
	assert.Equal(t, uint8(0xFF), TierFor(3000).Color.R)
}

func TestValidateHistory(t *testing.T) {
	assert.ErrorIs(t, ValidateHistory(nil), ErrEmptyHistory)

	ok := []Point{
		{Timestamp: 100, Rating: 10},
		{Timestamp: 100, Rating: 20},
		{Timestamp: 200, Rating: 30},
	}
	assert.NoError(t, ValidateHistory(ok))

	backwards := []Point{
		{Timestamp: 200, Rating: 10},
		{Timestamp: 100, Rating: 20},
	}
	assert.ErrorIs(t, ValidateHistory(backwards), ErrNonMonotonic)

	negative := []Point{{Timestamp: 1, Rating: -1}}
	assert.ErrorIs(t, ValidateHistory(negative), ErrNegativeRating)
}

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	assert.False(t, ok)

	p, ok := Latest([]Point{{Timestamp: 1}, {Timestamp: 2, Rating: 99}})
	require.True(t, ok)
	assert.Equal(t, 99, p.Rating)
}

func TestBoundsValidate(t *testing.T) {
	assert.NoError(t, Bounds{TimeStart: 1, TimeEnd: 2, RatingMin: 0, RatingMax: 1}.Validate())
	assert.ErrorIs(t, Bounds{TimeStart: 2, TimeEnd: 2, RatingMax: 1}.Validate(), ErrEmptyTimeRange)
	assert.ErrorIs(t, Bounds{TimeStart: 3, TimeEnd: 2, RatingMax: 1}.Validate(), ErrEmptyTimeRange)
	assert.ErrorIs(t, Bounds{TimeStart: 1, TimeEnd: 2, RatingMin: 5, RatingMax: 5}.Validate(), ErrEmptyRatingRange)
}

func TestBoundsInLaterHalf(t *testing.T) {
	b := Bounds{TimeStart: 1502372400, TimeEnd: 1533724000, RatingMax: 2000}

	assert.True(t, b.InLaterHalf(1527342000))
	assert.False(t, b.InLaterHalf(1509802800))
	assert.True(t, b.InLaterHalf(1518048200)) // exact midpoint
	assert.False(t, b.InLaterHalf(1518048199))

	odd := Bounds{TimeStart: 0, TimeEnd: 3, RatingMax: 1}
	assert.False(t, odd.InLaterHalf(1))
	assert.True(t, odd.InLaterHalf(2))
}

func TestGeometryFor(t *testing.T) {
	g, err := GeometryFor(640, 360, Margins{Left: 50, Top: 5, Right: 10, Bottom: 30})
	require.NoError(t, err)
	assert.Equal(t, Geometry{OriginX: 50, OriginY: 5, Width: 580, Height: 325}, g)

	_, err = GeometryFor(50, 360, Margins{Left: 50, Top: 5, Right: 10, Bottom: 30})
	assert.ErrorIs(t, err, ErrEmptyPanel)
}

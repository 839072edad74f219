package series

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository/memory"
)

var fixedNow = time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC)

func TestBuildSparseAscending(t *testing.T) {
	store := memory.NewStore()
	store.AddSale(1, fixedNow.AddDate(0, 0, -1).Add(2*time.Hour), 3)
	store.AddSale(1, fixedNow.AddDate(0, 0, -1).Add(5*time.Hour), 4)
	store.AddSale(1, fixedNow.AddDate(0, 0, -10), 2)
	store.AddSale(1, fixedNow.AddDate(0, 0, -90), 50)
	store.AddSale(2, fixedNow.AddDate(0, 0, -2), 9)

	b := NewBuilder(store).WithClock(func() time.Time { return fixedNow })
	points, err := b.Build(context.Background(), 1, 60)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, Day(fixedNow.AddDate(0, 0, -10)), points[0].Date)
	assert.Equal(t, 2, points[0].Demand)
	assert.Equal(t, Day(fixedNow.AddDate(0, 0, -1)), points[1].Date)
	assert.Equal(t, 7, points[1].Demand)
}

func TestBuildNoSales(t *testing.T) {
	b := NewBuilder(memory.NewStore()).WithClock(func() time.Time { return fixedNow })
	points, err := b.Build(context.Background(), 42, 0)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestBuildDataUnavailable(t *testing.T) {
	store := memory.NewStore()
	store.Fail(memory.OpSumSales, errors.New("connection refused"))

	_, err := NewBuilder(store).Build(context.Background(), 1, 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDensify(t *testing.T) {
	d0 := Day(fixedNow)
	points := []domain.DemandPoint{
		{Date: d0, Demand: 5},
		{Date: d0.AddDate(0, 0, 3), Demand: 2},
	}

	dense := Densify(points, d0, d0.AddDate(0, 0, 4))
	require.Len(t, dense, 5)
	assert.Equal(t, []int{5, 0, 0, 2, 0}, demands(dense))

	observed := DensifyObserved(points)
	assert.Equal(t, []int{5, 0, 0, 2}, demands(observed))

	assert.Nil(t, Densify(points, d0.AddDate(0, 0, 1), d0))
	assert.Nil(t, DensifyObserved(nil))
}

func demands(points []domain.DemandPoint) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = p.Demand
	}
	return out
}

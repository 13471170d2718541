package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	rows []Row
	err  error
}

func (r *fakeRepo) MergedOrderRows(ctx context.Context) ([]Row, error) {
	return r.rows, r.err
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testRows() []Row {
	return []Row{
		{OrderDate: date(2025, 11, 3), ProductID: 11, ProductCode: "SHIRT-02", ProductName: "Shirt Slim", Price: 25.5, Quantity: 2},
		{OrderDate: date(2025, 11, 20), ProductID: 10, ProductCode: "SHIRT-01", ProductName: "Shirt", Price: 10, Quantity: 3},
		{OrderDate: date(2025, 11, 28), ProductID: 10, ProductCode: "SHIRT-01", ProductName: "Shirt", Price: 10, Quantity: 4},
		{OrderDate: date(2025, 12, 5), ProductID: 10, ProductCode: "SHIRT-01", ProductName: "Shirt", Price: 10, Quantity: 5},
		{OrderDate: date(2026, 1, 9), ProductID: 20, ProductCode: "SHOE-01", ProductName: "Shoe", Price: 40, Quantity: 1},
	}
}

func TestMonthlyGroupsAndSums(t *testing.T) {
	svc := NewService(&fakeRepo{rows: testRows()}, nil)

	groups, err := svc.Monthly(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 3)

	require.Equal(t, "11/2025", groups[0].Month)
	require.Len(t, groups[0].Products, 2)
	// sorted by product id, same-product rows summed
	require.Equal(t, int64(10), groups[0].Products[0].ProductID)
	require.Equal(t, int64(7), groups[0].Products[0].Quantity)
	require.Equal(t, int64(11), groups[0].Products[1].ProductID)
	require.Equal(t, int64(2), groups[0].Products[1].Quantity)
	// monthly report has no revenue column
	require.Zero(t, groups[0].Products[0].Revenue)

	require.Equal(t, "12/2025", groups[1].Month)
	require.Equal(t, "01/2026", groups[2].Month)
	require.Equal(t, int64(20), groups[2].Products[0].ProductID)
}

func TestYearlyRevenueAndTotal(t *testing.T) {
	svc := NewService(&fakeRepo{rows: testRows()}, nil)

	groups, err := svc.Yearly(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	y2025 := groups[0]
	require.Equal(t, "2025", y2025.Year)
	require.Len(t, y2025.Products, 2)
	require.Equal(t, int64(12), y2025.Products[0].Quantity) // 3+4+5 shirts
	require.Equal(t, 120.0, y2025.Products[0].Revenue)
	require.Equal(t, 51.0, y2025.Products[1].Revenue)
	require.Equal(t, 171.0, y2025.Total)

	y2026 := groups[1]
	require.Equal(t, "2026", y2026.Year)
	require.Equal(t, 40.0, y2026.Total)
}

func TestYearlyUsesFirstSeenUnitPrice(t *testing.T) {
	// two fulfillments of the same product at different snapshot prices:
	// revenue is the first-seen price times the summed quantity
	svc := NewService(&fakeRepo{rows: []Row{
		{OrderDate: date(2025, 2, 1), ProductID: 10, ProductCode: "SHIRT-01", ProductName: "Shirt", Price: 10, Quantity: 3},
		{OrderDate: date(2025, 9, 1), ProductID: 10, ProductCode: "SHIRT-01", ProductName: "Shirt", Price: 12, Quantity: 4},
	}}, nil)

	groups, err := svc.Yearly(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, int64(7), groups[0].Products[0].Quantity)
	require.Equal(t, 70.0, groups[0].Products[0].Revenue)
	require.Equal(t, 70.0, groups[0].Total)
}

func TestReportsEmptySource(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)

	monthly, err := svc.Monthly(context.Background())
	require.NoError(t, err)
	require.Empty(t, monthly)

	yearly, err := svc.Yearly(context.Background())
	require.NoError(t, err)
	require.Empty(t, yearly)
}

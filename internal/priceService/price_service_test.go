package prices

import (
	"context"
	"testing"
	"time"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"

	"github.com/stretchr/testify/require"
)

func seededService(t *testing.T) *PriceService {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	day := func(d int) time.Time { return time.Date(2026, 5, d, 0, 0, 0, 0, time.UTC) }

	for _, p := range []models.MarketPrice{
		{PriceID: "m1", Commodity: "Wheat", Market: "Indore", State: "Madhya Pradesh", ModalPrice: 2400, ArrivalDate: day(1)},
		{PriceID: "m2", Commodity: "Wheat", Market: "Indore", State: "Madhya Pradesh", ModalPrice: 2500, ArrivalDate: day(3)},
		{PriceID: "m3", Commodity: "Wheat", Market: "Khanna", State: "Punjab", ModalPrice: 2200, ArrivalDate: day(2)},
		{PriceID: "m4", Commodity: "Onion", Market: "Lasalgaon", State: "Maharashtra", ModalPrice: 1800, ArrivalDate: day(2)},
	} {
		require.NoError(t, repo.UpsertMarketPrice(ctx, p))
	}
	for _, m := range []models.MSPRate{
		{MSPID: "s1", Commodity: "Wheat", Season: "rabi", Year: "2025-26", Price: 2425},
		{MSPID: "s2", Commodity: "Wheat", Season: "rabi", Year: "2024-25", Price: 2275},
		{MSPID: "s3", Commodity: "Paddy", Season: "kharif", Year: "2025-26", Price: 2369},
	} {
		require.NoError(t, repo.UpsertMSP(ctx, m))
	}
	return NewPriceService(repo)
}

func TestPriceService_MarketPrices(t *testing.T) {
	t.Parallel()
	svc := seededService(t)

	list, total, page, err := svc.MarketPrices(context.Background(), models.PriceFilter{Commodity: "wheat"})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, DefaultPageSize, page.Limit)
	require.Equal(t, "m2", list[0].PriceID)

	list, _, _, err = svc.MarketPrices(context.Background(), models.PriceFilter{State: "punjab"})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestPriceService_Commodities(t *testing.T) {
	t.Parallel()
	svc := seededService(t)

	names, err := svc.Commodities(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Onion", "Paddy", "Wheat"}, names)
}

func TestPriceService_Compare(t *testing.T) {
	t.Parallel()
	svc := seededService(t)
	ctx := context.Background()

	cmp, err := svc.Compare(ctx, "wheat")
	require.NoError(t, err)
	require.NotNil(t, cmp.MSP)
	require.Equal(t, 2425.0, cmp.MSP.Price)
	require.Len(t, cmp.Markets, 2)

	indore := cmp.Markets[0]
	require.Equal(t, "Indore", indore.Market)
	require.Equal(t, 2500.0, indore.ModalPrice)
	require.Equal(t, 75.0, indore.Difference)
	require.Equal(t, 3.09, indore.PercentVsMSP)
	require.True(t, indore.AboveMSP)

	khanna := cmp.Markets[1]
	require.Equal(t, -225.0, khanna.Difference)
	require.False(t, khanna.AboveMSP)

	onion, err := svc.Compare(ctx, "Onion")
	require.NoError(t, err)
	require.Nil(t, onion.MSP)
	require.Zero(t, onion.Markets[0].Difference)

	_, err = svc.Compare(ctx, "saffron")
	require.ErrorIs(t, err, marketerrors.ErrPriceNotFound)
	_, err = svc.Compare(ctx, " ")
	require.ErrorIs(t, err, marketerrors.ErrInvalidInput)
}

package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	zonedomain "github.com/rateshoplabs/rateshop/internal/zone/domain"
	zonerepository "github.com/rateshoplabs/rateshop/internal/zone/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupZoneTest(t *testing.T) zonedomain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&zonedomain.CountryZoneMapping{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB: db, Log: zap.NewNop(), GenID: node, Repo: zonerepository.New(),
	})
}

func TestResolveZoneNormalizesInput(t *testing.T) {
	svc := setupZoneTest(t)
	ctx := context.Background()

	_, err := svc.SetMappings(ctx, "FEDEX", "IP", []zonedomain.MappingInput{
		{CountryCode: "US", CountryName: "United States", Zone: "Z1"},
	})
	require.NoError(t, err)

	zone, err := svc.ResolveZone(ctx, "fedex", "ip", "us")
	require.NoError(t, err)
	assert.Equal(t, "Z1", zone)
}

func TestResolveZoneUnmappedCountry(t *testing.T) {
	svc := setupZoneTest(t)
	ctx := context.Background()

	_, err := svc.SetMappings(ctx, "FEDEX", "IP", []zonedomain.MappingInput{
		{CountryCode: "US", CountryName: "United States", Zone: "Z1"},
	})
	require.NoError(t, err)

	_, err = svc.ResolveZone(ctx, "FEDEX", "IP", "DE")
	assert.ErrorIs(t, err, zonedomain.ErrNoZoneMapping)
}

func TestSetMappingsReplacesWholesale(t *testing.T) {
	svc := setupZoneTest(t)
	ctx := context.Background()

	_, err := svc.SetMappings(ctx, "FEDEX", "IP", []zonedomain.MappingInput{
		{CountryCode: "US", CountryName: "United States", Zone: "Z1"},
		{CountryCode: "CA", CountryName: "Canada", Zone: "Z1"},
	})
	require.NoError(t, err)

	n, err := svc.SetMappings(ctx, "FEDEX", "IP", []zonedomain.MappingInput{
		{CountryCode: "CA", CountryName: "Canada", Zone: "Z2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// US fell out of the set, CA moved zones.
	_, err = svc.ResolveZone(ctx, "FEDEX", "IP", "US")
	assert.ErrorIs(t, err, zonedomain.ErrNoZoneMapping)

	zone, err := svc.ResolveZone(ctx, "FEDEX", "IP", "CA")
	require.NoError(t, err)
	assert.Equal(t, "Z2", zone)
}

func TestSetMappingsScopedByService(t *testing.T) {
	svc := setupZoneTest(t)
	ctx := context.Background()

	_, err := svc.SetMappings(ctx, "FEDEX", "IP", []zonedomain.MappingInput{
		{CountryCode: "US", CountryName: "United States", Zone: "Z1"},
	})
	require.NoError(t, err)
	_, err = svc.SetMappings(ctx, "FEDEX", "IE", []zonedomain.MappingInput{
		{CountryCode: "US", CountryName: "United States", Zone: "Z4"},
	})
	require.NoError(t, err)

	zone, err := svc.ResolveZone(ctx, "FEDEX", "IP", "US")
	require.NoError(t, err)
	assert.Equal(t, "Z1", zone)

	zone, err = svc.ResolveZone(ctx, "FEDEX", "IE", "US")
	require.NoError(t, err)
	assert.Equal(t, "Z4", zone)
}

func TestSetMappingsRejectsDuplicateCountry(t *testing.T) {
	svc := setupZoneTest(t)

	_, err := svc.SetMappings(context.Background(), "FEDEX", "IP", []zonedomain.MappingInput{
		{CountryCode: "US", CountryName: "United States", Zone: "Z1"},
		{CountryCode: "US", CountryName: "United States", Zone: "Z2"},
	})
	assert.ErrorIs(t, err, zonedomain.ErrInvalidMapping)
}

func TestSetMappingsRejectsMissingCarrier(t *testing.T) {
	svc := setupZoneTest(t)

	_, err := svc.SetMappings(context.Background(), "  ", "IP", nil)
	assert.ErrorIs(t, err, zonedomain.ErrInvalidCarrier)
}

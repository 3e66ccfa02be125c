package whitelist

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupWhitelistTest(t *testing.T) Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&AllowedCountry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{DB: db, Log: zap.NewNop(), GenID: node})
}

func TestEmptyWhitelistAllowsEverything(t *testing.T) {
	svc := setupWhitelistTest(t)

	ok, err := svc.Allowed(context.Background(), "US")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNonEmptyWhitelistFilters(t *testing.T) {
	svc := setupWhitelistTest(t)
	ctx := context.Background()

	n, err := svc.SetAll(ctx, []CountryInput{
		{CountryCode: "us", CountryName: "United States"},
		{CountryCode: "DE", CountryName: "Germany"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := svc.Allowed(ctx, "US")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Allowed(ctx, "JP")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetAllReplacesWholesale(t *testing.T) {
	svc := setupWhitelistTest(t)
	ctx := context.Background()

	_, err := svc.SetAll(ctx, []CountryInput{
		{CountryCode: "US", CountryName: "United States"},
		{CountryCode: "DE", CountryName: "Germany"},
	})
	require.NoError(t, err)

	_, err = svc.SetAll(ctx, []CountryInput{
		{CountryCode: "DE", CountryName: "Germany"},
	})
	require.NoError(t, err)

	ok, err := svc.Allowed(ctx, "US")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetAllEmptyReopensAllCountries(t *testing.T) {
	svc := setupWhitelistTest(t)
	ctx := context.Background()

	_, err := svc.SetAll(ctx, []CountryInput{{CountryCode: "DE", CountryName: "Germany"}})
	require.NoError(t, err)

	n, err := svc.SetAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ok, err := svc.Allowed(ctx, "JP")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetAllRejectsDuplicates(t *testing.T) {
	svc := setupWhitelistTest(t)

	_, err := svc.SetAll(context.Background(), []CountryInput{
		{CountryCode: "US", CountryName: "United States"},
		{CountryCode: "us", CountryName: "United States"},
	})
	assert.ErrorIs(t, err, ErrInvalidCountryCode)
}

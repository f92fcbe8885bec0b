package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adoor/estate/internal/config"
	"adoor/estate/internal/models"
	"adoor/estate/internal/utils"
)

func newPropertyTestService(t *testing.T, dbName string) IPropertyService {
	db := utils.SetupTestDB(t, dbName, propertiesCollection)
	return NewPropertyService(db, &config.Config{})
}

func samplePropertyInput(title, city, listingType string) CreatePropertyInput {
	return CreatePropertyInput{
		Title:        title,
		Description:  "Test property",
		PropertyType: "Apartment",
		ListingType:  listingType,
		Pricing:      models.Pricing{Amount: 250000, CurrencyCode: "EUR"},
		Location:     models.PropertyLocation{Address: "1 Test Street", City: city, Country: "PT"},
	}
}

func TestPropertyService_CreateAndFind(t *testing.T) {
	svc := newPropertyTestService(t, "testdb_property_service_create")
	ctx := context.Background()
	agentID := utils.NewSixID()

	created, err := svc.CreateProperty(ctx, agentID, samplePropertyInput("Sunny 2BR", "Lisbon", "sale"))
	require.NoError(t, err)
	assert.Equal(t, models.PropertyStatusAvailable, created.Status)
	assert.Equal(t, agentID, created.AgentID)

	found, err := svc.FindPropertyByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunny 2BR", found.Title)

	resolvedAgent, err := svc.AgentFor(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, agentID, resolvedAgent)

	// Title and listing type are mandatory.
	_, err = svc.CreateProperty(ctx, agentID, CreatePropertyInput{Description: "no title"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.AgentFor(ctx, utils.NewSixID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPropertyService_Counters(t *testing.T) {
	svc := newPropertyTestService(t, "testdb_property_service_counters")
	ctx := context.Background()

	created, err := svc.CreateProperty(ctx, utils.NewSixID(), samplePropertyInput("Counted", "Porto", "rent"))
	require.NoError(t, err)

	require.NoError(t, svc.IncrementViews(ctx, created.ID))
	require.NoError(t, svc.IncrementViews(ctx, created.ID))
	require.NoError(t, svc.IncrementInquiries(ctx, created.ID))

	found, err := svc.FindPropertyByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), found.Views)
	assert.Equal(t, int64(1), found.Inquiries)

	assert.ErrorIs(t, svc.IncrementViews(ctx, utils.NewSixID()), ErrNotFound)
}

func TestPropertyService_ListProperties(t *testing.T) {
	svc := newPropertyTestService(t, "testdb_property_service_list")
	ctx := context.Background()
	agentA := utils.NewSixID()
	agentB := utils.NewSixID()

	_, err := svc.CreateProperty(ctx, agentA, samplePropertyInput("Lisbon Sale", "Lisbon", "sale"))
	require.NoError(t, err)
	_, err = svc.CreateProperty(ctx, agentA, samplePropertyInput("Lisbon Rent", "Lisbon", "rent"))
	require.NoError(t, err)
	_, err = svc.CreateProperty(ctx, agentB, samplePropertyInput("Porto Rent", "Porto", "rent"))
	require.NoError(t, err)

	results, total, err := svc.ListProperties(ctx, PropertyFilter{City: "Lisbon"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, results, 2)

	results, total, err = svc.ListProperties(ctx, PropertyFilter{ListingType: "rent", AgentID: &agentB}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, results, 1)
	assert.Equal(t, "Porto Rent", results[0].Title)

	// Pagination: total counts everything, the page is capped.
	results, total, err = svc.ListProperties(ctx, PropertyFilter{}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, results, 2)
}

func TestPropertyService_DeleteProperty(t *testing.T) {
	svc := newPropertyTestService(t, "testdb_property_service_delete")
	ctx := context.Background()
	owner := utils.NewSixID()
	stranger := utils.NewSixID()

	created, err := svc.CreateProperty(ctx, owner, samplePropertyInput("Doomed", "Faro", "sale"))
	require.NoError(t, err)

	err = svc.DeleteProperty(ctx, created.ID, stranger)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, svc.DeleteProperty(ctx, created.ID, owner))

	_, err = svc.FindPropertyByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting twice reports not found, not permission denied.
	err = svc.DeleteProperty(ctx, created.ID, owner)
	assert.ErrorIs(t, err, ErrNotFound)
}

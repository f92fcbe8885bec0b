package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"adoor/estate/internal/config"
	"adoor/estate/internal/db"
	"adoor/estate/internal/models"
	"adoor/estate/internal/utils"
)

// IPropertyService defines the interface for property catalog operations.
// The lifecycle services depend on it as their existence guard: AgentFor
// answers both "does this property exist" and "who handles it".
type IPropertyService interface {
	CreateProperty(ctx context.Context, agentID utils.SixID, input CreatePropertyInput) (*models.Property, error)
	FindPropertyByID(ctx context.Context, propertyID utils.SixID) (*models.Property, error)
	AgentFor(ctx context.Context, propertyID utils.SixID) (utils.SixID, error)
	ListProperties(ctx context.Context, filter PropertyFilter, limit int, skip int) ([]models.Property, int64, error)
	IncrementViews(ctx context.Context, propertyID utils.SixID) error
	IncrementInquiries(ctx context.Context, propertyID utils.SixID) error
	DeleteProperty(ctx context.Context, propertyID, agentID utils.SixID) error
	Summary(ctx context.Context, propertyID utils.SixID) (*models.PropertySummary, error)
}

const propertiesCollection = "properties"

// CreatePropertyInput carries the fields of a new catalog entry.
type CreatePropertyInput struct {
	Title        string
	Description  string
	PropertyType string
	ListingType  string
	Pricing      models.Pricing
	Location     models.PropertyLocation
	Specs        *models.PropertySpecs
}

// PropertyFilter narrows ListProperties results.
type PropertyFilter struct {
	City         string
	PropertyType string
	ListingType  string
	Status       models.PropertyStatus
	AgentID      *utils.SixID
}

// propertyService implements IPropertyService.
type propertyService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewPropertyService creates a new PropertyService.
func NewPropertyService(db *mongo.Database, cfg *config.Config) IPropertyService {
	return &propertyService{db: db, cfg: cfg}
}

// CreateProperty creates a new property document in Available state.
func (s *propertyService) CreateProperty(ctx context.Context, agentID utils.SixID, input CreatePropertyInput) (*models.Property, error) {
	if input.Title == "" || input.ListingType == "" {
		return nil, fmt.Errorf("%w: title and listing type are required", ErrInvalidRequest)
	}

	collection := s.db.Collection(propertiesCollection)
	now := time.Now().UTC()

	var newProperty *models.Property
	var err error

	operation := func() error {
		newProperty = &models.Property{
			ID:           utils.NewSixID(),
			AgentID:      agentID,
			Title:        input.Title,
			Description:  input.Description,
			PropertyType: input.PropertyType,
			ListingType:  input.ListingType,
			Pricing:      input.Pricing,
			Location:     input.Location,
			Specs:        input.Specs,
			Status:       models.PropertyStatusAvailable,
			Views:        0,
			Inquiries:    0,
			Deleted:      false,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		_, insertErr := collection.InsertOne(ctx, newProperty)
		return insertErr
	}

	err = db.Try(operation)

	if err != nil {
		propertyIDStr := "<unknown>"
		if newProperty != nil {
			propertyIDStr = newProperty.ID.String()
		}
		return nil, fmt.Errorf("failed to insert new property for agent %s (last attempted property ID: %s) after multiple retries: %w",
			agentID.String(), propertyIDStr, err)
	}

	return newProperty, nil
}

// FindPropertyByID finds a non-deleted property by its ID.
func (s *propertyService) FindPropertyByID(ctx context.Context, propertyID utils.SixID) (*models.Property, error) {
	var property models.Property
	collection := s.db.Collection(propertiesCollection)
	filter := bson.M{"_id": propertyID, "deleted": false}

	err := collection.FindOne(ctx, filter).Decode(&property)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: property %s", ErrNotFound, propertyID.String())
		}
		return nil, fmt.Errorf("error finding property by ID %s: %w", propertyID.String(), err)
	}
	return &property, nil
}

// AgentFor returns the listing agent of a property, or ErrNotFound if the
// property does not exist. Callers use this as the pre-write existence check.
func (s *propertyService) AgentFor(ctx context.Context, propertyID utils.SixID) (utils.SixID, error) {
	var result struct {
		AgentID utils.SixID `bson:"agent_id"`
	}
	collection := s.db.Collection(propertiesCollection)
	filter := bson.M{"_id": propertyID, "deleted": false}
	opts := options.FindOne().SetProjection(bson.M{"agent_id": 1})

	err := collection.FindOne(ctx, filter, opts).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return utils.SixID{}, fmt.Errorf("%w: property %s", ErrNotFound, propertyID.String())
		}
		return utils.SixID{}, fmt.Errorf("error resolving agent for property %s: %w", propertyID.String(), err)
	}
	return result.AgentID, nil
}

// ListProperties returns non-deleted properties matching the filter, newest
// first, with the total match count for pagination.
func (s *propertyService) ListProperties(ctx context.Context, filter PropertyFilter, limit int, skip int) ([]models.Property, int64, error) {
	collection := s.db.Collection(propertiesCollection)

	query := bson.M{"deleted": false}
	if filter.City != "" {
		query["location.city"] = filter.City
	}
	if filter.PropertyType != "" {
		query["property_type"] = filter.PropertyType
	}
	if filter.ListingType != "" {
		query["listing_type"] = filter.ListingType
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.AgentID != nil {
		query["agent_id"] = *filter.AgentID
	}

	total, err := collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip))

	cursor, err := collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query properties: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.Property
	if err = cursor.All(ctx, &results); err != nil {
		return nil, 0, fmt.Errorf("failed to decode properties: %w", err)
	}

	return results, total, nil
}

// IncrementViews bumps the property's view counter atomically.
func (s *propertyService) IncrementViews(ctx context.Context, propertyID utils.SixID) error {
	return s.incrementCounter(ctx, propertyID, "views")
}

// IncrementInquiries bumps the property's inquiry counter atomically.
// Called once per submitted inquiry; $inc keeps concurrent submissions exact.
func (s *propertyService) IncrementInquiries(ctx context.Context, propertyID utils.SixID) error {
	return s.incrementCounter(ctx, propertyID, "inquiries")
}

func (s *propertyService) incrementCounter(ctx context.Context, propertyID utils.SixID, field string) error {
	collection := s.db.Collection(propertiesCollection)
	filter := bson.M{"_id": propertyID, "deleted": false}
	update := bson.M{"$inc": bson.M{field: 1}}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error incrementing %s for property %s: %w", field, propertyID.String(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: property %s", ErrNotFound, propertyID.String())
	}
	return nil
}

// DeleteProperty performs a soft delete. Only the listing agent may delete.
func (s *propertyService) DeleteProperty(ctx context.Context, propertyID, agentID utils.SixID) error {
	collection := s.db.Collection(propertiesCollection)
	now := time.Now().UTC()

	filter := bson.M{
		"_id":      propertyID,
		"agent_id": agentID,
		"deleted":  false,
	}
	update := bson.M{
		"$set": bson.M{
			"deleted":    true,
			"deleted_at": now,
			"updated_at": now,
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error deleting property %s: %w", propertyID.String(), err)
	}
	if result.MatchedCount == 0 {
		// Diagnose why the conditional update matched nothing.
		var property models.Property
		checkErr := collection.FindOne(ctx, bson.M{"_id": propertyID}).Decode(&property)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: property %s", ErrNotFound, propertyID.String())
		}
		if checkErr == nil && property.AgentID != agentID {
			return fmt.Errorf("%w: property %s does not belong to agent %s", ErrPermissionDenied, propertyID.String(), agentID.String())
		}
		return fmt.Errorf("%w: property %s", ErrNotFound, propertyID.String())
	}

	return nil
}

// Summary returns the display subset of a property's fields.
func (s *propertyService) Summary(ctx context.Context, propertyID utils.SixID) (*models.PropertySummary, error) {
	property, err := s.FindPropertyByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return &models.PropertySummary{
		ID:       property.ID,
		Title:    property.Title,
		Pricing:  property.Pricing,
		Location: property.Location,
		Status:   property.Status,
	}, nil
}

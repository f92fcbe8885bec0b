package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"adoor/estate/internal/auth" // For password hashing
	"adoor/estate/internal/db"   // For duplicate-key retry
	"adoor/estate/internal/models"
	"adoor/estate/internal/utils"
)

// ErrEmailExists is returned when an attempt is made to use an email that already exists.
var ErrEmailExists = errors.New("email already in use by another account")

// IUserService defines the interface for user-related operations.
// This allows for easier mocking in tests.
type IUserService interface {
	CreateUser(ctx context.Context, name, email, phone, password string, role models.Role) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, userID utils.SixID) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	RoleOf(ctx context.Context, userID utils.SixID) (models.Role, error)
	Summary(ctx context.Context, userID utils.SixID) (*models.UserSummary, error)
	SuspendUser(ctx context.Context, userIDToSuspend, adminUserID utils.SixID) error
	UnsuspendUser(ctx context.Context, userIDToUnsuspend utils.SixID) error
	DeleteUser(ctx context.Context, userID utils.SixID) error
}

const usersCollection = "users"

// userService implements IUserService.
// Keep the struct unexported if NewUserService is the only intended way to create it.
type userService struct {
	db *mongo.Database
}

// NewUserService creates a new UserService.
func NewUserService(db *mongo.Database) IUserService {
	return &userService{db: db}
}

// CreateUser creates an activated user with the given role and a hashed password.
func (s *userService) CreateUser(ctx context.Context, name, email, phone, password string, role models.Role) (*models.User, error) {
	collection := s.db.Collection(usersCollection)

	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, role)
	}

	// Ensure email uniqueness among non-deleted users before inserting.
	// The unique index on email remains the real guard against races.
	count, err := collection.CountDocuments(ctx, bson.M{"email": email, "deleted": false})
	if err != nil {
		return nil, fmt.Errorf("error checking email uniqueness for %s: %w", email, err)
	}
	if count > 0 {
		return nil, ErrEmailExists
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password for %s: %w", email, err)
	}

	now := time.Now().UTC()
	var newUser *models.User

	operation := func() error {
		newUser = &models.User{
			Base:         models.Base{ID: utils.NewSixID()}, // ID generated on each attempt
			Name:         name,
			Email:        email,
			Phone:        phone,
			PasswordHash: hashedPassword,
			Role:         role,
			Activated:    true,
			Suspended:    false,
			Deleted:      false,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		_, insertErr := collection.InsertOne(ctx, newUser)
		return insertErr
	}

	err = db.Try(operation)

	if err != nil {
		if mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), "email_1") {
			return nil, ErrEmailExists
		}
		userIDStr := "<unknown>"
		if newUser != nil {
			userIDStr = newUser.ID.String()
		}
		return nil, fmt.Errorf("error inserting new user for %s (last attempted user ID: %s) after multiple retries: %w",
			email, userIDStr, err)
	}

	return newUser, nil
}

// FindByEmail finds a non-deleted user by their email address.
// Returns nil and mongo.ErrNoDocuments if not found.
func (s *userService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	collection := s.db.Collection(usersCollection)
	filter := bson.M{"email": email, "deleted": false}

	err := collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	return &user, nil
}

// FindByID finds a non-deleted user by their ID.
func (s *userService) FindByID(ctx context.Context, userID utils.SixID) (*models.User, error) {
	var user models.User
	collection := s.db.Collection(usersCollection)
	filter := bson.M{"_id": userID, "deleted": false}

	err := collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID.String(), err)
	}
	return &user, nil
}

// Authenticate verifies the email/password pair and returns the user.
// Suspended and non-activated accounts cannot log in.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: unknown email or wrong password", ErrUnauthenticated)
		}
		return nil, err
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, fmt.Errorf("%w: unknown email or wrong password", ErrUnauthenticated)
	}
	if user.Suspended {
		return nil, fmt.Errorf("%w: account suspended", ErrPermissionDenied)
	}
	if !user.Activated {
		return nil, fmt.Errorf("%w: account not activated", ErrPermissionDenied)
	}

	return user, nil
}

// RoleOf returns the role of the given user. Unknown users map to ErrNotFound.
func (s *userService) RoleOf(ctx context.Context, userID utils.SixID) (models.Role, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", fmt.Errorf("%w: user %s", ErrNotFound, userID.String())
		}
		return "", err
	}
	if user.Role == "" {
		return models.RoleGeneral, nil
	}
	return user.Role, nil
}

// Summary returns the display subset of a user's fields.
func (s *userService) Summary(ctx context.Context, userID utils.SixID) (*models.UserSummary, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UserSummary{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Phone:      user.Phone,
		ProfilePic: user.ProfilePic,
	}, nil
}

// SuspendUser marks a user as suspended.
// Ensures an admin cannot suspend themselves.
func (s *userService) SuspendUser(ctx context.Context, userIDToSuspend, adminUserID utils.SixID) error {
	if userIDToSuspend == adminUserID {
		return fmt.Errorf("admin cannot suspend themselves")
	}
	collection := s.db.Collection(usersCollection)
	filter := bson.M{"_id": userIDToSuspend, "deleted": false}
	update := bson.M{"$set": bson.M{"suspended": true, "updated_at": time.Now().UTC()}}
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error suspending user %s: %w", userIDToSuspend.String(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments // User not found or already deleted
	}
	log.Printf("User %s suspended by admin %s", userIDToSuspend.String(), adminUserID.String())
	return nil
}

// UnsuspendUser marks a user as not suspended.
func (s *userService) UnsuspendUser(ctx context.Context, userIDToUnsuspend utils.SixID) error {
	collection := s.db.Collection(usersCollection)
	filter := bson.M{"_id": userIDToUnsuspend, "deleted": false}
	update := bson.M{"$set": bson.M{"suspended": false, "updated_at": time.Now().UTC()}}
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error unsuspending user %s: %w", userIDToUnsuspend.String(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments // User not found or already deleted
	}
	log.Printf("User %s unsuspended", userIDToUnsuspend.String())
	return nil
}

// DeleteUser performs a soft delete on a user.
func (s *userService) DeleteUser(ctx context.Context, userID utils.SixID) error {
	collection := s.db.Collection(usersCollection)
	now := time.Now().UTC()

	filter := bson.M{"_id": userID}
	update := bson.M{
		"$set": bson.M{
			"deleted":    true,
			"deleted_at": now,
			"updated_at": now,
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error deleting user %s: %w", userID.String(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user %s not found", userID.String())
	}

	return nil
}

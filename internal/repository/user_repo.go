package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhanibek-dev/whisperbox/internal/entity"
)

var (
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrUserNotFound      = errors.New("user not found")
)

type mongoMessage struct {
	ID        primitive.ObjectID `bson:"_id"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"created_at"`
}

type mongoUser struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	Username            string             `bson:"username"`
	Email               string             `bson:"email"`
	Password            string             `bson:"password"`
	VerifyCode          string             `bson:"verify_code,omitempty"`
	VerifyCodeExpiresAt *time.Time         `bson:"verify_code_expires_at,omitempty"`
	IsVerified          bool               `bson:"is_verified"`
	IsAcceptingMessages bool               `bson:"is_accepting_messages"`
	Messages            []mongoMessage     `bson:"messages"`
	CreatedAt           time.Time          `bson:"created_at"`
	UpdatedAt           time.Time          `bson:"updated_at"`
}

func (m *mongoUser) toEntity() *entity.User {
	messages := make([]entity.Message, 0, len(m.Messages))
	for _, msg := range m.Messages {
		messages = append(messages, entity.Message{
			ID:        msg.ID,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}
	return &entity.User{
		ID:                  m.ID,
		Username:            m.Username,
		Email:               m.Email,
		Password:            m.Password,
		VerifyCode:          m.VerifyCode,
		VerifyCodeExpiresAt: m.VerifyCodeExpiresAt,
		IsVerified:          m.IsVerified,
		IsAcceptingMessages: m.IsAcceptingMessages,
		Messages:            messages,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

type UserRepository struct {
	db     *mongo.Database
	redis  *redis.Client
	logger *zap.Logger
}

func NewUserRepository(db *mongo.Database, rds *redis.Client, logger *zap.Logger) *UserRepository {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure indexes (idempotent operation)
	userCollection := db.Collection("users")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	_, err := userCollection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Warn("Failed to create indexes for users collection (may already exist)", zap.Error(err))
	} else {
		logger.Info("Successfully ensured indexes for users collection")
	}

	return &UserRepository{
		db:     db,
		redis:  rds,
		logger: logger.Named("UserRepository"),
	}
}

func mapDuplicateKeyError(err error) error {
	var writeException mongo.WriteException
	if errors.As(err, &writeException) {
		for _, writeError := range writeException.WriteErrors {
			if writeError.Code == 11000 {
				if strings.Contains(writeError.Message, "email_1") {
					return ErrDuplicateEmail
				}
				if strings.Contains(writeError.Message, "username_1") {
					return ErrDuplicateUsername
				}
			}
		}
	}
	return nil
}

// CreateUser inserts a fresh unverified account. The clear password is
// hashed here; the caller supplies the verification code and its expiry.
func (r *UserRepository) CreateUser(ctx context.Context, user *entity.User) (primitive.ObjectID, error) {
	r.logger.Info("Attempting to create user in repository", zap.String("email", user.Email), zap.String("username", user.Username))
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		r.logger.Error("Failed to hash password during user creation", zap.String("email", user.Email), zap.Error(err))
		return primitive.NilObjectID, err
	}

	now := time.Now()
	dbUser := &mongoUser{
		ID:                  primitive.NewObjectID(),
		Username:            user.Username,
		Email:               user.Email,
		Password:            string(hashedPassword),
		VerifyCode:          user.VerifyCode,
		VerifyCodeExpiresAt: user.VerifyCodeExpiresAt,
		IsVerified:          false,
		IsAcceptingMessages: true,
		Messages:            []mongoMessage{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	_, err = r.db.Collection("users").InsertOne(ctx, dbUser)
	if err != nil {
		if mapped := mapDuplicateKeyError(err); mapped != nil {
			r.logger.Warn("Duplicate key during user creation", zap.String("email", user.Email), zap.Error(err))
			return primitive.NilObjectID, mapped
		}
		r.logger.Error("Database error during user creation", zap.String("email", user.Email), zap.Error(err))
		return primitive.NilObjectID, err
	}
	r.logger.Info("User created successfully in repository", zap.String("userID", dbUser.ID.Hex()))
	return dbUser.ID, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.logger.Debug("Attempting to get user by email from repository", zap.String("email", email))
	var dbUser mongoUser
	err := r.db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		r.logger.Error("Database error fetching user by email", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	r.logger.Debug("Attempting to get user by username from repository", zap.String("username", username))
	var dbUser mongoUser
	err := r.db.Collection("users").FindOne(ctx, bson.M{"username": username}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		r.logger.Error("Database error fetching user by username", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

// GetVerifiedUserByUsername backs the public acceptance check: only
// verified boards are discoverable.
func (r *UserRepository) GetVerifiedUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	r.logger.Debug("Attempting to get verified user by username", zap.String("username", username))
	var dbUser mongoUser
	err := r.db.Collection("users").FindOne(ctx, bson.M{"username": username, "is_verified": true}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		r.logger.Error("Database error fetching verified user by username", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, userID primitive.ObjectID) (*entity.User, error) {
	r.logger.Debug("Attempting to get user by ID from repository", zap.String("userID", userID.Hex()))
	var dbUser mongoUser
	err := r.db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		r.logger.Error("Database error fetching user by ID", zap.String("userID", userID.Hex()), zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

// ReissueCredentials overwrites username, password and verification code
// on an existing unverified account. The account keeps its identity and
// any messages it may already hold.
func (r *UserRepository) ReissueCredentials(ctx context.Context, userID primitive.ObjectID, username, password, code string, expiresAt time.Time) error {
	r.logger.Info("Reissuing credentials", zap.String("userID", userID.Hex()))
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		r.logger.Error("Failed to hash password during reissue", zap.String("userID", userID.Hex()), zap.Error(err))
		return err
	}
	update := bson.M{
		"$set": bson.M{
			"username":               username,
			"password":               string(hashedPassword),
			"verify_code":            code,
			"verify_code_expires_at": expiresAt,
			"updated_at":             time.Now(),
		},
	}
	result, err := r.db.Collection("users").UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		if mapped := mapDuplicateKeyError(err); mapped != nil {
			r.logger.Warn("Duplicate key during credential reissue", zap.String("userID", userID.Hex()), zap.Error(err))
			return mapped
		}
		r.logger.Error("DB error reissuing credentials", zap.String("userID", userID.Hex()), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	r.logger.Info("Credentials reissued successfully", zap.String("userID", userID.Hex()))
	return nil
}

// MarkEmailVerified flips the account to verified and invalidates the
// code: the stored code becomes empty and its expiry is moved to now, so
// the same code can never validate twice.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, userID primitive.ObjectID) error {
	r.logger.Info("Marking email as verified", zap.String("userID", userID.Hex()))
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"is_verified":            true,
			"verify_code":            "",
			"verify_code_expires_at": now,
			"updated_at":             now,
		},
	}
	result, err := r.db.Collection("users").UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		r.logger.Error("DB error marking email as verified", zap.String("userID", userID.Hex()), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	r.logger.Info("Email marked as verified", zap.String("userID", userID.Hex()))
	return nil
}

func (r *UserRepository) SetAcceptingMessages(ctx context.Context, userID primitive.ObjectID, accepting bool) error {
	r.logger.Info("Updating message acceptance", zap.String("userID", userID.Hex()), zap.Bool("accepting", accepting))
	update := bson.M{
		"$set": bson.M{
			"is_accepting_messages": accepting,
			"updated_at":            time.Now(),
		},
	}
	result, err := r.db.Collection("users").UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		r.logger.Error("DB error updating message acceptance", zap.String("userID", userID.Hex()), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// PushMessage appends a message to the owner's embedded inbox.
func (r *UserRepository) PushMessage(ctx context.Context, userID primitive.ObjectID, message *entity.Message) error {
	r.logger.Info("Appending message to inbox", zap.String("userID", userID.Hex()))
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	update := bson.M{
		"$push": bson.M{
			"messages": mongoMessage{
				ID:        message.ID,
				Content:   message.Content,
				CreatedAt: message.CreatedAt,
			},
		},
		"$set": bson.M{"updated_at": time.Now()},
	}
	result, err := r.db.Collection("users").UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		r.logger.Error("DB error appending message", zap.String("userID", userID.Hex()), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	r.logger.Info("Message appended successfully", zap.String("userID", userID.Hex()), zap.String("messageID", message.ID.Hex()))
	return nil
}

// PullMessage removes a message by id from the owner's inbox. It reports
// whether anything was actually removed; pulling an absent id is not an
// error.
func (r *UserRepository) PullMessage(ctx context.Context, userID, messageID primitive.ObjectID) (bool, error) {
	r.logger.Info("Removing message from inbox", zap.String("userID", userID.Hex()), zap.String("messageID", messageID.Hex()))
	update := bson.M{
		"$pull": bson.M{"messages": bson.M{"_id": messageID}},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	result, err := r.db.Collection("users").UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		r.logger.Error("DB error removing message", zap.String("userID", userID.Hex()), zap.Error(err))
		return false, err
	}
	if result.MatchedCount == 0 {
		return false, ErrUserNotFound
	}
	return result.ModifiedCount > 0, nil
}

// MessagesSortedDesc unwinds the embedded inbox, sorts by created_at
// descending and regroups, so the newest message comes first.
func (r *UserRepository) MessagesSortedDesc(ctx context.Context, userID primitive.ObjectID) ([]entity.Message, error) {
	r.logger.Debug("Fetching sorted messages", zap.String("userID", userID.Hex()))
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: userID}}}},
		{{Key: "$unwind", Value: "$messages"}},
		{{Key: "$sort", Value: bson.D{{Key: "messages.created_at", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$_id"},
			{Key: "messages", Value: bson.D{{Key: "$push", Value: "$messages"}}},
		}}},
	}

	cursor, err := r.db.Collection("users").Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("DB error aggregating messages", zap.String("userID", userID.Hex()), zap.Error(err))
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		ID       primitive.ObjectID `bson:"_id"`
		Messages []mongoMessage     `bson:"messages"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		r.logger.Error("Error decoding aggregated messages", zap.String("userID", userID.Hex()), zap.Error(err))
		return nil, err
	}

	// An account with no messages produces no document after $unwind.
	if len(results) == 0 {
		return []entity.Message{}, nil
	}

	messages := make([]entity.Message, 0, len(results[0].Messages))
	for _, msg := range results[0].Messages {
		messages = append(messages, entity.Message{
			ID:        msg.ID,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}
	r.logger.Debug("Messages fetched successfully", zap.String("userID", userID.Hex()), zap.Int("count", len(messages)))
	return messages, nil
}

// CacheToken stores a session token in Redis.
func (r *UserRepository) CacheToken(ctx context.Context, keySuffix, token string, expiration time.Duration) error {
	return r.redis.Set(ctx, "token:"+keySuffix, token, expiration).Err()
}

// InvalidateToken removes a session token from Redis.
func (r *UserRepository) InvalidateToken(ctx context.Context, keySuffix string) error {
	return r.redis.Del(ctx, "token:"+keySuffix).Err()
}

// GetToken retrieves a session token from Redis.
func (r *UserRepository) GetToken(ctx context.Context, keySuffix string) (string, error) {
	token, err := r.redis.Get(ctx, "token:"+keySuffix).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil // Token not found is not an application error here
	}
	return token, err
}

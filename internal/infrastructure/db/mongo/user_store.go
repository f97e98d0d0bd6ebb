package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/thamco/customer-identity/internal/core/domain"
)

const (
	collectionUsers    = "users"
	collectionRoles    = "roles"
	collectionCounters = "counters"

	customerIDCounter = "customer_id"
)

type userDocument struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	CustomerID         int                `bson:"customer_id"`
	UserName           string             `bson:"username"`
	NormalizedUserName string             `bson:"normalized_username"`
	Email              string             `bson:"email"`
	NormalizedEmail    string             `bson:"normalized_email"`
	PasswordHash       string             `bson:"password_hash"`
	SecurityStamp      string             `bson:"security_stamp"`
	ConcurrencyStamp   string             `bson:"concurrency_stamp"`
	Roles              []string           `bson:"roles"`
	LockoutEnabled     bool               `bson:"lockout_enabled"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
}

type roleDocument struct {
	Name           string `bson:"name"`
	NormalizedName string `bson:"normalized_name"`
	Descriptor     string `bson:"descriptor"`
}

// UserStore implements ports.UserStore on MongoDB. Every mutation is filtered
// on the caller's concurrency stamp and writes a fresh one.
type UserStore struct {
	users    *mongo.Collection
	roles    *mongo.Collection
	counters *mongo.Collection
	policy   domain.PasswordPolicy
	validate *validator.Validate
	cost     int
}

func NewUserStore(db *mongo.Database, policy domain.PasswordPolicy) *UserStore {
	return &UserStore{
		users:    db.Collection(collectionUsers),
		roles:    db.Collection(collectionRoles),
		counters: db.Collection(collectionCounters),
		policy:   policy,
		validate: validator.New(),
		cost:     bcrypt.DefaultCost,
	}
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"normalized_email": domain.Normalize(email)})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *UserStore) Create(ctx context.Context, user *domain.User, password string) error {
	if err := s.validate.Var(user.Email, "required,email"); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidEmail, user.Email)
	}
	if err := s.policy.Validate(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	customerID, err := s.nextCustomerID(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	user.CustomerID = customerID
	user.PasswordHash = string(hash)
	user.SecurityStamp = uuid.NewString()
	user.ConcurrencyStamp = uuid.NewString()
	user.LockoutEnabled = true
	user.Roles = []string{}
	user.CreatedAt = now
	user.UpdatedAt = now

	doc := newUserDocument(user)
	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid.Hex()
	}
	user.NormalizedEmail = doc.NormalizedEmail
	user.NormalizedUserName = doc.NormalizedUserName
	return nil
}

func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	set := bson.M{
		"username":            user.UserName,
		"normalized_username": domain.Normalize(user.UserName),
		"email":               user.Email,
		"normalized_email":    domain.Normalize(user.Email),
	}
	if err := s.apply(ctx, user, nil, bson.M{"$set": set}, nil); err != nil {
		return err
	}
	user.NormalizedUserName = domain.Normalize(user.UserName)
	user.NormalizedEmail = domain.Normalize(user.Email)
	return nil
}

func (s *UserStore) Delete(ctx context.Context, user *domain.User) error {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.users.DeleteOne(ctx, bson.M{"_id": oid, "concurrency_stamp": user.ConcurrencyStamp})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return s.explainMiss(ctx, oid, user.ConcurrencyStamp, nil)
	}
	return nil
}

func (s *UserStore) RemovePassword(ctx context.Context, user *domain.User) error {
	set := bson.M{
		"password_hash":  "",
		"security_stamp": uuid.NewString(),
	}
	if err := s.apply(ctx, user, nil, bson.M{"$set": set}, nil); err != nil {
		return err
	}
	user.PasswordHash = ""
	return nil
}

func (s *UserStore) AddPassword(ctx context.Context, user *domain.User, password string) error {
	if user.HasPassword() {
		return domain.ErrUserHasPassword
	}
	if err := s.policy.Validate(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	set := bson.M{
		"password_hash":  string(hash),
		"security_stamp": uuid.NewString(),
	}
	guard := bson.M{"password_hash": ""}
	if err := s.apply(ctx, user, guard, bson.M{"$set": set}, domain.ErrUserHasPassword); err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	return nil
}

func (s *UserStore) CheckPassword(_ context.Context, user *domain.User, password string) (bool, error) {
	if !user.HasPassword() {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password: %w", err)
	}
	return true, nil
}

func (s *UserStore) ValidatePassword(password string) error {
	return s.policy.Validate(password)
}

func (s *UserStore) AddToRole(ctx context.Context, user *domain.User, role string) error {
	r, err := s.findRole(ctx, role)
	if err != nil {
		return err
	}

	guard := bson.M{"roles": bson.M{"$ne": r.Name}}
	update := bson.M{"$push": bson.M{"roles": r.Name}}
	if err := s.apply(ctx, user, guard, update, domain.ErrUserAlreadyInRole); err != nil {
		return err
	}
	user.Roles = append(user.Roles, r.Name)
	return nil
}

func (s *UserStore) GetRoles(ctx context.Context, user *domain.User) ([]string, error) {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc struct {
		Roles []string `bson:"roles"`
	}
	opts := options.FindOne().SetProjection(bson.M{"roles": 1})
	if err := s.users.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get roles: %w", err)
	}
	return append([]string{}, doc.Roles...), nil
}

// SeedRoles inserts the built-in roles that are missing.
func (s *UserStore) SeedRoles(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, r := range domain.SeedRoles {
		doc := roleDocument{Name: r.Name, NormalizedName: r.NormalizedName, Descriptor: r.Descriptor}
		_, err := s.roles.UpdateOne(ctx,
			bson.M{"normalized_name": r.NormalizedName},
			bson.M{"$setOnInsert": doc},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", r.Name, err)
		}
	}
	return nil
}

// EnsureIndexes creates the unique indexes the store relies on.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unique := options.Index().SetUnique(true)
	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "normalized_username", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "normalized_email", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "customer_id", Value: 1}}, Options: unique},
	}
	if _, err := s.users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}

	roleIndex := mongo.IndexModel{Keys: bson.D{{Key: "normalized_name", Value: 1}}, Options: unique}
	if _, err := s.roles.Indexes().CreateOne(ctx, roleIndex); err != nil {
		return fmt.Errorf("role indexes: %w", err)
	}
	return nil
}

func (s *UserStore) findRole(ctx context.Context, name string) (*roleDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var r roleDocument
	if err := s.roles.FindOne(ctx, bson.M{"normalized_name": domain.Normalize(name)}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRoleNotFound, name)
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &r, nil
}

func (s *UserStore) nextCustomerID(ctx context.Context) (int, error) {
	var counter struct {
		Seq int `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": customerIDCounter},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next customer id: %w", err)
	}
	return counter.Seq, nil
}

// apply runs update against the user document that still carries
// user.ConcurrencyStamp and matches guard, rotating the stamp. guardErr is
// returned when the stamp matches but the guard does not.
func (s *UserStore) apply(ctx context.Context, user *domain.User, guard, update bson.M, guardErr error) error {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": oid, "concurrency_stamp": user.ConcurrencyStamp}
	for k, v := range guard {
		filter[k] = v
	}

	stamp := uuid.NewString()
	now := time.Now().UTC()
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
	}
	set["concurrency_stamp"] = stamp
	set["updated_at"] = now
	update["$set"] = set

	res, err := s.users.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.explainMiss(ctx, oid, user.ConcurrencyStamp, guardErr)
	}

	user.ConcurrencyStamp = stamp
	user.UpdatedAt = now
	return nil
}

// explainMiss works out why a stamped write matched nothing.
func (s *UserStore) explainMiss(ctx context.Context, oid primitive.ObjectID, stamp string, guardErr error) error {
	n, err := s.users.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("count user: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	if guardErr == nil {
		return domain.ErrConcurrencyConflict
	}

	n, err = s.users.CountDocuments(ctx, bson.M{"_id": oid, "concurrency_stamp": stamp})
	if err != nil {
		return fmt.Errorf("count user: %w", err)
	}
	if n == 0 {
		return domain.ErrConcurrencyConflict
	}
	return guardErr
}

func newUserDocument(u *domain.User) userDocument {
	return userDocument{
		CustomerID:         u.CustomerID,
		UserName:           u.UserName,
		NormalizedUserName: domain.Normalize(u.UserName),
		Email:              u.Email,
		NormalizedEmail:    domain.Normalize(u.Email),
		PasswordHash:       u.PasswordHash,
		SecurityStamp:      u.SecurityStamp,
		ConcurrencyStamp:   u.ConcurrencyStamp,
		Roles:              append([]string{}, u.Roles...),
		LockoutEnabled:     u.LockoutEnabled,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func (d userDocument) toDomain() *domain.User {
	roles := d.Roles
	if roles == nil {
		roles = []string{}
	}
	return &domain.User{
		ID:                 d.ID.Hex(),
		CustomerID:         d.CustomerID,
		UserName:           d.UserName,
		NormalizedUserName: d.NormalizedUserName,
		Email:              d.Email,
		NormalizedEmail:    d.NormalizedEmail,
		PasswordHash:       d.PasswordHash,
		SecurityStamp:      d.SecurityStamp,
		ConcurrencyStamp:   d.ConcurrencyStamp,
		Roles:              roles,
		LockoutEnabled:     d.LockoutEnabled,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

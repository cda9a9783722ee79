package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	"github.com/oksasatya/materials-store-api/internal/domain/repository"
)

const (
	usersCollection = "users"

	phoneIndex = "phone_userType_unique"
	emailIndex = "email_unique"
)

// userDoc is the stored shape of every account. userType is the discriminator;
// customer and provider fields are only written for their own type.
type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	UserType     string             `bson:"userType"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email,omitempty"`
	Phone        string             `bson:"phone,omitempty"`
	Address      string             `bson:"address,omitempty"`
	Password     string             `bson:"password"`
	RefreshToken string             `bson:"refreshToken,omitempty"`
	AvatarURL    string             `bson:"avatarUrl,omitempty"`
	IsActive     bool               `bson:"isActive"`
	LastLogin    *time.Time         `bson:"lastLogin,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`

	Cart          []string `bson:"cart,omitempty"`
	Wishlist      []string `bson:"wishlist,omitempty"`
	Orders        []string `bson:"orders,omitempty"`
	Favorites     []string `bson:"favorites,omitempty"`
	Notifications []string `bson:"notifications,omitempty"`

	CompanyName string   `bson:"companyName,omitempty"`
	ServiceType string   `bson:"serviceType,omitempty"`
	IsVerified  *bool    `bson:"isVerified,omitempty"`
	Rating      *float64 `bson:"rating,omitempty"`
	Earnings    *float64 `bson:"earnings,omitempty"`
}

func (d *userDoc) toEntity() *entity.User {
	u := &entity.User{
		ID:           d.ID.Hex(),
		UserType:     entity.UserType(d.UserType),
		Name:         d.Name,
		Email:        d.Email,
		Phone:        d.Phone,
		Address:      d.Address,
		Password:     d.Password,
		RefreshToken: d.RefreshToken,
		AvatarURL:    d.AvatarURL,
		IsActive:     d.IsActive,
		LastLogin:    d.LastLogin,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	switch u.UserType {
	case entity.UserTypeCustomer:
		u.Customer = &entity.CustomerProfile{
			Cart:          nonNil(d.Cart),
			Wishlist:      nonNil(d.Wishlist),
			Orders:        nonNil(d.Orders),
			Favorites:     nonNil(d.Favorites),
			Notifications: nonNil(d.Notifications),
		}
	case entity.UserTypeServiceProvider:
		p := &entity.ProviderProfile{CompanyName: d.CompanyName, ServiceType: d.ServiceType}
		if d.IsVerified != nil {
			p.IsVerified = *d.IsVerified
		}
		if d.Rating != nil {
			p.Rating = *d.Rating
		}
		if d.Earnings != nil {
			p.Earnings = *d.Earnings
		}
		u.Provider = p
	}
	return u
}

func fromEntity(u *entity.User) *userDoc {
	d := &userDoc{
		UserType:     string(u.UserType),
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		Address:      u.Address,
		Password:     u.Password,
		RefreshToken: u.RefreshToken,
		AvatarURL:    u.AvatarURL,
		IsActive:     u.IsActive,
		LastLogin:    u.LastLogin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if c := u.Customer; c != nil {
		d.Cart, d.Wishlist, d.Orders, d.Favorites, d.Notifications = c.Cart, c.Wishlist, c.Orders, c.Favorites, c.Notifications
	}
	if p := u.Provider; p != nil {
		verified, rating, earnings := p.IsVerified, p.Rating, p.Earnings
		d.CompanyName, d.ServiceType = p.CompanyName, p.ServiceType
		d.IsVerified, d.Rating, d.Earnings = &verified, &rating, &earnings
	}
	return d
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type UserRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection), now: time.Now}
}

// EnsureIndexes creates the uniqueness constraints. A phone is unique per account type,
// an email across all accounts. Partial filters let either field be absent.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "phone", Value: 1}, {Key: "userType", Value: 1}},
			Options: options.Index().SetName(phoneIndex).SetUnique(true).
				SetPartialFilterExpression(bson.M{"phone": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(emailIndex).SetUnique(true).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "userType", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

func duplicateErr(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if strings.Contains(err.Error(), emailIndex) {
		return repository.ErrDuplicateEmail
	}
	return repository.ErrDuplicatePhone
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, repository.ErrNotFound
	}
	return oid, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	now := r.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	doc := fromEntity(u)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if dup := duplicateErr(err); dup != err {
			return dup
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = doc.ID.Hex()
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var d userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return d.toEntity(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string, userType entity.UserType) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"phone": strings.TrimSpace(phone), "userType": string(userType)})
}

func (r *UserRepository) updateByID(ctx context.Context, id string, update bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		if dup := duplicateErr(err); dup != err {
			return dup
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Update writes the editable profile fields. Credentials, flags and lists have their own methods.
func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = r.now().UTC()
	set := bson.M{
		"name":      u.Name,
		"address":   u.Address,
		"avatarUrl": u.AvatarURL,
		"updatedAt": u.UpdatedAt,
	}
	if u.Email != "" {
		set["email"] = u.Email
	}
	if u.Phone != "" {
		set["phone"] = u.Phone
	}
	if p := u.Provider; p != nil {
		set["companyName"] = p.CompanyName
		set["serviceType"] = p.ServiceType
		set["isVerified"] = p.IsVerified
	}
	return r.updateByID(ctx, u.ID, bson.M{"$set": set})
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	if token == "" {
		return r.updateByID(ctx, id, bson.M{
			"$unset": bson.M{"refreshToken": ""},
			"$set":   bson.M{"updatedAt": r.now().UTC()},
		})
	}
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"refreshToken": token, "updatedAt": r.now().UTC()}})
}

func (r *UserRepository) RecordLogin(ctx context.Context, id, refreshToken string, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{
		"refreshToken": refreshToken,
		"lastLogin":    at.UTC(),
		"updatedAt":    r.now().UTC(),
	}})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"password": hash, "updatedAt": r.now().UTC()},
		"$unset": bson.M{"refreshToken": ""},
	})
}

// SetActive toggles the soft-disable flag. Deactivation also drops the refresh token.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	update := bson.M{"$set": bson.M{"isActive": active, "updatedAt": r.now().UTC()}}
	if !active {
		update["$unset"] = bson.M{"refreshToken": ""}
	}
	return r.updateByID(ctx, id, update)
}

func (r *UserRepository) SetVerified(ctx context.Context, id string) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"isVerified": true, "updatedAt": r.now().UTC()}})
}

func (r *UserRepository) AddToList(ctx context.Context, id string, list entity.CustomerList, itemID string) error {
	if !list.Valid() {
		return fmt.Errorf("unknown list %q", list)
	}
	return r.updateByID(ctx, id, bson.M{
		"$addToSet": bson.M{string(list): itemID},
		"$set":      bson.M{"updatedAt": r.now().UTC()},
	})
}

func (r *UserRepository) RemoveFromList(ctx context.Context, id string, list entity.CustomerList, itemID string) error {
	if !list.Valid() {
		return fmt.Errorf("unknown list %q", list)
	}
	return r.updateByID(ctx, id, bson.M{
		"$pull": bson.M{string(list): itemID},
		"$set":  bson.M{"updatedAt": r.now().UTC()},
	})
}

func listFilter(f entity.UserFilter) bson.M {
	filter := bson.M{}
	if f.UserType != nil {
		filter["userType"] = string(*f.UserType)
	}
	if f.IsActive != nil {
		filter["isActive"] = *f.IsActive
	}
	return filter
}

func (r *UserRepository) List(ctx context.Context, f entity.UserFilter, skip, limit int64) ([]*entity.User, int64, error) {
	filter := listFilter(f)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "createdAt", Value: -1}})
	users, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Search is a case-insensitive substring match on name, email and phone.
func (r *UserRepository) Search(ctx context.Context, q string, limit int64) ([]*entity.User, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(q)), Options: "i"}
	filter := bson.M{"$or": []bson.M{
		{"name": pattern},
		{"email": pattern},
		{"phone": pattern},
	}}
	return r.find(ctx, filter, options.Find().SetLimit(limit).SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *UserRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*entity.User, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := make([]*entity.User, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toEntity())
	}
	return out, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)

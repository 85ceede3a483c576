package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xxxsen/anonmsg/internal/config"
	"github.com/xxxsen/anonmsg/internal/db"
	"github.com/xxxsen/anonmsg/internal/model"
	appErr "github.com/xxxsen/anonmsg/internal/pkg/errors"
)

const usersCollection = "users"

func init() {
	Register("mongo", func(ctx context.Context, cfg config.StoreConfig) (AccountRepo, CloseFunc, error) {
		handle := db.NewMongo(cfg.Mongo)
		return NewMongoAccountRepo(handle), handle.Close, nil
	})
}

// Field names follow the existing users collection layout.
type mongoAccount struct {
	ID                  bson.ObjectID  `bson:"_id,omitempty"`
	Username            string         `bson:"username"`
	Email               string         `bson:"email"`
	Password            string         `bson:"password"`
	VerifyCode          string         `bson:"verifyCode"`
	VerifyCodeExpiry    time.Time      `bson:"verifyCodeExpiry"`
	IsVerified          bool           `bson:"isVerified"`
	IsAcceptingMessages bool           `bson:"isAcceptingMessages"`
	Messages            []mongoMessage `bson:"messages"`
	CreatedAt           time.Time      `bson:"createdAt"`
	UpdatedAt           time.Time      `bson:"updatedAt"`
}

type mongoMessage struct {
	ID        bson.ObjectID `bson:"_id"`
	Content   string        `bson:"content"`
	CreatedAt time.Time     `bson:"createdAt"`
}

func (d *mongoAccount) toModel() *model.Account {
	msgs := make([]model.Message, 0, len(d.Messages))
	for _, m := range d.Messages {
		msgs = append(msgs, m.toModel())
	}
	return &model.Account{
		ID:                  d.ID.Hex(),
		Username:            d.Username,
		Email:               d.Email,
		PasswordHash:        d.Password,
		VerifyCode:          d.VerifyCode,
		VerifyCodeExpiry:    d.VerifyCodeExpiry,
		IsVerified:          d.IsVerified,
		IsAcceptingMessages: d.IsAcceptingMessages,
		Messages:            msgs,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

func (m mongoMessage) toModel() model.Message {
	return model.Message{ID: m.ID.Hex(), Content: m.Content, CreatedAt: m.CreatedAt}
}

type MongoAccountRepo struct {
	conn *db.Mongo
}

func NewMongoAccountRepo(conn *db.Mongo) *MongoAccountRepo {
	r := &MongoAccountRepo{conn: conn}
	conn.OnConnect(ensureAccountIndexes)
	return r
}

func ensureAccountIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

func (r *MongoAccountRepo) users(ctx context.Context) (*mongo.Collection, error) {
	database, err := r.conn.EnsureConnected(ctx)
	if err != nil {
		return nil, err
	}
	return database.Collection(usersCollection), nil
}

func (r *MongoAccountRepo) findOne(ctx context.Context, filter bson.D, opts ...options.Lister[options.FindOneOptions]) (*mongoAccount, error) {
	coll, err := r.users(ctx)
	if err != nil {
		return nil, err
	}
	var doc mongoAccount
	if err := coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *MongoAccountRepo) find(ctx context.Context, filter bson.D) (*model.Account, error) {
	doc, err := r.findOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *MongoAccountRepo) FindByIdentifier(ctx context.Context, identifier string) (*model.Account, error) {
	return r.find(ctx, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "username", Value: identifier}},
		bson.D{{Key: "email", Value: identifier}},
	}}})
}

func (r *MongoAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, appErr.ErrNotFound
	}
	return r.find(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *MongoAccountRepo) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.find(ctx, bson.D{{Key: "username", Value: username}})
}

func (r *MongoAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.find(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *MongoAccountRepo) FindVerifiedByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.find(ctx, bson.D{{Key: "username", Value: username}, {Key: "isVerified", Value: true}})
}

func (r *MongoAccountRepo) Create(ctx context.Context, account *model.Account) error {
	coll, err := r.users(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	doc := mongoAccount{
		ID:                  bson.NewObjectID(),
		Username:            account.Username,
		Email:               account.Email,
		Password:            account.PasswordHash,
		VerifyCode:          account.VerifyCode,
		VerifyCodeExpiry:    account.VerifyCodeExpiry,
		IsVerified:          account.IsVerified,
		IsAcceptingMessages: account.IsAcceptingMessages,
		Messages:            []mongoMessage{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return appErr.ErrConflict
		}
		return err
	}
	account.ID = doc.ID.Hex()
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

func (r *MongoAccountRepo) Update(ctx context.Context, account *model.Account) error {
	oid, err := bson.ObjectIDFromHex(account.ID)
	if err != nil {
		return appErr.ErrNotFound
	}
	coll, err := r.users(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "username", Value: account.Username},
		{Key: "email", Value: account.Email},
		{Key: "password", Value: account.PasswordHash},
		{Key: "verifyCode", Value: account.VerifyCode},
		{Key: "verifyCodeExpiry", Value: account.VerifyCodeExpiry},
		{Key: "isVerified", Value: account.IsVerified},
		{Key: "isAcceptingMessages", Value: account.IsAcceptingMessages},
		{Key: "updatedAt", Value: now},
	}}}
	res, err := coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return appErr.ErrConflict
		}
		return err
	}
	if res.MatchedCount == 0 {
		return appErr.ErrNotFound
	}
	account.UpdatedAt = now
	return nil
}

func (r *MongoAccountRepo) SetAccepting(ctx context.Context, id string, accepting bool) (*model.Account, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, appErr.ErrNotFound
	}
	coll, err := r.users(ctx)
	if err != nil {
		return nil, err
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "isAcceptingMessages", Value: accepting},
		{Key: "updatedAt", Value: time.Now()},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoAccount
	if err := coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *MongoAccountRepo) AppendMessage(ctx context.Context, accountID string, msg *model.Message) error {
	oid, err := bson.ObjectIDFromHex(accountID)
	if err != nil {
		return appErr.ErrNotFound
	}
	coll, err := r.users(ctx)
	if err != nil {
		return err
	}
	doc := mongoMessage{ID: bson.NewObjectID(), Content: msg.Content, CreatedAt: msg.CreatedAt}
	res, err := coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "messages", Value: doc}}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return appErr.ErrNotFound
	}
	msg.ID = doc.ID.Hex()
	return nil
}

func (r *MongoAccountRepo) RemoveMessage(ctx context.Context, accountID, messageID string) (int64, error) {
	oid, err := bson.ObjectIDFromHex(accountID)
	if err != nil {
		return 0, nil
	}
	mid, err := bson.ObjectIDFromHex(messageID)
	if err != nil {
		return 0, nil
	}
	coll, err := r.users(ctx)
	if err != nil {
		return 0, err
	}
	res, err := coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$pull", Value: bson.D{{Key: "messages", Value: bson.D{{Key: "_id", Value: mid}}}}}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoAccountRepo) ListMessages(ctx context.Context, accountID string) ([]model.Message, error) {
	oid, err := bson.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, appErr.ErrNotFound
	}
	doc, err := r.findOne(ctx, bson.D{{Key: "_id", Value: oid}},
		options.FindOne().SetProjection(bson.D{{Key: "messages", Value: 1}}))
	if err != nil {
		return nil, err
	}
	msgs := make([]model.Message, 0, len(doc.Messages))
	for _, m := range doc.Messages {
		msgs = append(msgs, m.toModel())
	}
	return model.SortMessages(msgs), nil
}

package mongorepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/eadtoolz/core/account"
)

type accountDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	AvatarURL    string    `bson:"avatar_url,omitempty"`
	PasswordHash []byte    `bson:"password_hash"`
	IsActive     bool      `bson:"is_active"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
	LastLogin    time.Time `bson:"last_login,omitempty"`
}

func (d accountDoc) account() account.Account {
	acc := account.Account(d)
	acc.CreatedAt = d.CreatedAt.UTC()
	acc.UpdatedAt = d.UpdatedAt.UTC()
	if !d.LastLogin.IsZero() {
		acc.LastLogin = d.LastLogin.UTC()
	}
	return acc
}

type accountRepository struct {
	coll *mongo.Collection
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *mongo.Database) account.Repository {
	return &accountRepository{coll: db.Collection(accountsCollection)}
}

func (repo accountRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...account.Account) error {
	filter := bson.M{"email": email}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, acc := range excluded {
			ids = append(ids, acc.ID)
		}
		filter["_id"] = bson.M{"$nin": ids}
	}

	n, err := repo.coll.CountDocuments(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if n > 0 {
		return account.ErrEmailExists
	}
	return nil
}

func (repo accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	acc.ID = uuid.New().String()
	if _, err := repo.coll.InsertOne(ctx, accountDoc(acc)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (repo accountRepository) getAccount(ctx context.Context, filter bson.M) (account.Account, error) {
	var doc accountDoc
	if err := repo.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "finding account")
	}
	return doc.account(), nil
}

func (repo accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	return repo.getAccount(ctx, bson.M{"_id": id})
}

func (repo accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	return repo.getAccount(ctx, bson.M{"email": email})
}

func (repo accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": acc.ID}, accountDoc(acc))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if res.MatchedCount == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return acc, nil
}

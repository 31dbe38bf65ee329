package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bankingapp/user-service/internal/core/domain"
)

type RoleRepository struct {
	col *mongo.Collection
	ids *sequence
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{
		col: db.Collection(collectionRoles),
		ids: newSequence(db, collectionRoles),
	}
}

func (r *RoleRepository) FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	var doc roleDoc
	if err := r.col.FindOne(ctx, bson.M{"name": name.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w: %w", domain.ErrPersistence, err)
	}
	return &domain.Role{ID: doc.ID, Name: domain.RoleName(doc.Name)}, nil
}

func (r *RoleRepository) Insert(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	id, err := r.ids.next(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := r.col.InsertOne(ctx, roleDoc{ID: id, Name: role.Name.String()}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrRoleExists
		}
		return nil, fmt.Errorf("insert role: %w: %w", domain.ErrPersistence, err)
	}
	return &domain.Role{ID: id, Name: role.Name}, nil
}

func (r *RoleRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bankingapp/user-service/internal/core/domain"
)

// Transactor implements ports.Transactor with client sessions. Multi-document
// transactions need a replica set or sharded cluster.
type Transactor struct {
	client *mongo.Client
}

func NewTransactor(client *mongo.Client) *Transactor {
	return &Transactor{client: client}
}

// WithinTransaction runs fn in a session transaction. The session travels in
// the ctx handed to fn, so collection calls made with it join the
// transaction. A ctx that already carries a session joins it.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w: %w", domain.ErrPersistence, err)
	}
	defer sess.EndSession(ctx)

	var fnErr error
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		fnErr = fn(sc)
		return nil, fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil && err == fnErr {
		return err
	}
	return fmt.Errorf("mongo transaction: %w: %w", domain.ErrPersistence, err)
}

package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"QuoteChat/entity"
)

// ProductName resolves a catalog item's display name.
func (m *MongoDB) ProductName(ctx context.Context, productID int64) (string, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return "", err
	}
	defer m.disconnect(connection)

	var product entity.Product
	err = connection.Database(m.database).Collection(productsCollection).
		FindOne(ctx, bson.D{{"_id", productID}}).Decode(&product)
	if err != nil {
		if err = m.findError(err); err != nil {
			return "", err
		}
		return "", fmt.Errorf("product %d: %w", productID, entity.ErrNotFound)
	}
	return product.Name, nil
}

// UpsertProducts seeds the catalog from configuration.
func (m *MongoDB) UpsertProducts(ctx context.Context, products []entity.Product) error {
	if len(products) == 0 {
		return nil
	}
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	models := make([]mongo.WriteModel, 0, len(products))
	for _, p := range products {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{"_id", p.ID}}).
			SetUpdate(bson.D{{"$set", bson.D{{"name", p.Name}}}}).
			SetUpsert(true))
	}
	_, err = connection.Database(m.database).Collection(productsCollection).
		BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("mongodb upsert products: %w", err)
	}
	return nil
}

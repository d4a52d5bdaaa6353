package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"QuoteChat/entity"
)

// CustomerProfile returns nil without error when the customer has no profile.
func (m *MongoDB) CustomerProfile(ctx context.Context, customerID int64) (*entity.Profile, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var profile entity.Profile
	err = connection.Database(m.database).Collection(usersCollection).
		FindOne(ctx, bson.D{{"_id", customerID}}).Decode(&profile)
	if err != nil {
		return nil, m.findError(err)
	}
	return &profile, nil
}

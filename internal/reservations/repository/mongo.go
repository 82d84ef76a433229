package repository

import (
	"context"
	"errors"
	"fmt"
	reservationserrors "spacedesk/internal/reservations/errors"
	"spacedesk/pkg/config"
	"spacedesk/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	CollectionName         = "Reservations"
	CountersCollectionName = "Counters"
	reservationsCounterID  = "reservations"
)

type mongoReservationRepository struct {
	client       *mongo.Client
	collection   *mongo.Collection
	counters     *mongo.Collection
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		client:       cfg.Client.Mongo,
		collection:   db.Collection(CollectionName),
		counters:     db.Collection(CountersCollectionName),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", reservationserrors.ErrPersistence, op, err)
}

// nextID atomically increments the reservations counter, creating it on first use.
func (r *mongoReservationRepository) nextID(ctx context.Context) (int64, error) {
	filter := bson.M{"_id": reservationsCounterID}
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	if err := r.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func (r *mongoReservationRepository) Insert(ctx context.Context, res *model.Reservation) error {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return persistenceErr("allocate reservation id", err)
	}

	res.ID = id
	res.Status = model.StatusReserved
	if _, err := r.collection.InsertOne(ctx, res); err != nil {
		return persistenceErr("insert reservation", err)
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id int64) (*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	var res model.Reservation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %d", reservationserrors.ErrNotFound, id)
		}
		return nil, persistenceErr("find reservation", err)
	}
	return &res, nil
}

func (r *mongoReservationRepository) MarkExpired(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": model.StatusReserved}
	update := bson.M{"$set": bson.M{"status": model.StatusExpired}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, persistenceErr("mark reservation expired", err)
	}
	return result.ModifiedCount == 1, nil
}

func statusFilter(filter model.ReservationFilter) bson.M {
	if filter.Status == "" {
		return bson.M{}
	}
	return bson.M{"status": filter.Status}
}

func (r *mongoReservationRepository) FindAll(ctx context.Context, filter model.ReservationFilter, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, statusFilter(filter), opts)
	if err != nil {
		return nil, persistenceErr("query reservations", err)
	}
	defer cursor.Close(ctx)

	reservations := make([]*model.Reservation, 0)
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, persistenceErr("decode reservations", err)
	}
	return reservations, nil
}

func (r *mongoReservationRepository) Count(ctx context.Context, filter model.ReservationFilter) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, statusFilter(filter))
	if err != nil {
		return 0, persistenceErr("count reservations", err)
	}
	return count, nil
}

func (r *mongoReservationRepository) FindOverdue(ctx context.Context, before time.Time, limit int) ([]*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	filter := bson.M{
		"status":     model.StatusReserved,
		"expires_at": bson.M{"$lt": before},
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "expires_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, persistenceErr("query overdue reservations", err)
	}
	defer cursor.Close(ctx)

	reservations := make([]*model.Reservation, 0)
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, persistenceErr("decode overdue reservations", err)
	}
	return reservations, nil
}

func (r *mongoReservationRepository) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return persistenceErr("ping mongo", err)
	}
	return nil
}

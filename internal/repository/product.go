package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/charlene/kitchen-api/internal/model"
)

// ProductFilter narrows the catalog listing. Status is always applied by
// the caller (only published items are listed publicly).
type ProductFilter struct {
	Status         string
	Category       string
	Available      *bool
	DietaryOptions []string
	Search         string
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error)
	GetPublishedByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error)
	FindActiveByName(ctx context.Context, name string) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter, sort, order string, page, limit int) ([]model.Product, int64, error)
	Categories(ctx context.Context) ([]string, error)
	Featured(ctx context.Context, limit int) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	IncrementOrderCount(ctx context.Context, id primitive.ObjectID, by int) error
	UpdateRating(ctx context.Context, id primitive.ObjectID, rating model.Rating) error
}

type mongoProductRepo struct{ coll *mongo.Collection }

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepo{coll: db.Collection(productsCollection)}
}

func (r *mongoProductRepo) Create(ctx context.Context, product *model.Product) error {
	now := time.Now()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("create product: %w", translateWriteErr(err))
	}
	return nil
}

func (r *mongoProductRepo) findOne(ctx context.Context, filter bson.M) (*model.Product, error) {
	p := &model.Product{}
	err := r.coll.FindOne(ctx, filter).Decode(p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *mongoProductRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoProductRepo) GetPublishedByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	return r.findOne(ctx, bson.M{"_id": id, "status": model.ProductStatusPublished})
}

// FindActiveByName matches a non-archived product with this exact name,
// used to enforce name uniqueness among the live catalog.
func (r *mongoProductRepo) FindActiveByName(ctx context.Context, name string) (*model.Product, error) {
	return r.findOne(ctx, bson.M{
		"name":   name,
		"status": bson.M{"$ne": model.ProductStatusArchived},
	})
}

func buildProductQuery(f ProductFilter) bson.M {
	query := bson.M{}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.Available != nil {
		query["available"] = *f.Available
	}
	if len(f.DietaryOptions) > 0 {
		query["dietaryOptions"] = bson.M{"$all": f.DietaryOptions}
	}
	if f.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
			bson.M{"ingredients": re},
		}
	}
	return query
}

func productSort(sort, order string) bson.D {
	dir := 1
	if order == "desc" {
		dir = -1
	}
	switch sort {
	case "price":
		return bson.D{{Key: "price", Value: dir}}
	case "rating":
		return bson.D{{Key: "rating.average", Value: dir}}
	case "popular":
		// popularity is always descending regardless of requested order
		return bson.D{{Key: "orderCount", Value: -1}}
	case "newest":
		return bson.D{{Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "name", Value: dir}}
	}
}

func (r *mongoProductRepo) List(ctx context.Context, filter ProductFilter, sort, order string, page, limit int) ([]model.Product, int64, error) {
	query := buildProductQuery(filter)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	opts := options.Find().
		SetSort(productSort(sort, order)).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer cur.Close(ctx)

	var products []model.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	return products, total, nil
}

func (r *mongoProductRepo) Categories(ctx context.Context) ([]string, error) {
	raw, err := r.coll.Distinct(ctx, "category", bson.M{
		"status":    model.ProductStatusPublished,
		"available": true,
	})
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	categories := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			categories = append(categories, s)
		}
	}
	return categories, nil
}

func (r *mongoProductRepo) Featured(ctx context.Context, limit int) ([]model.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "orderCount", Value: -1}, {Key: "rating.average", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{
		"status":    model.ProductStatusPublished,
		"available": true,
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("featured products: %w", err)
	}
	defer cur.Close(ctx)

	var products []model.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode featured products: %w", err)
	}
	return products, nil
}

func (r *mongoProductRepo) Update(ctx context.Context, product *model.Product) error {
	product.UpdatedAt = time.Now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	if err != nil {
		return fmt.Errorf("update product: %w", translateWriteErr(err))
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// IncrementOrderCount is a single atomic $inc; concurrent orders cannot
// lose increments.
func (r *mongoProductRepo) IncrementOrderCount(ctx context.Context, id primitive.ObjectID, by int) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"orderCount": by},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("increment order count: %w", err)
	}
	return nil
}

func (r *mongoProductRepo) UpdateRating(ctx context.Context, id primitive.ObjectID, rating model.Rating) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"rating": rating, "updatedAt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	return nil
}

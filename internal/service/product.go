package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charlene/kitchen-api/internal/apperr"
	"github.com/charlene/kitchen-api/internal/dto"
	"github.com/charlene/kitchen-api/internal/model"
	"github.com/charlene/kitchen-api/internal/repository"
)

const defaultFeaturedLimit = 6

type ProductService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) *ProductService {
	return &ProductService{productRepo: productRepo}
}

// List returns published catalog entries only.
func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	filter := repository.ProductFilter{
		Status:    model.ProductStatusPublished,
		Category:  req.Category,
		Available: req.Available,
		Search:    req.Search,
	}
	if req.DietaryOptions != "" {
		filter.DietaryOptions = strings.Split(req.DietaryOptions, ",")
	}

	products, total, err := s.productRepo.List(ctx, filter, req.Sort, req.Order, req.Page, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &dto.ProductListResponse{
		Products:   products,
		Pagination: dto.NewPagination(req.Page, req.Limit, total),
	}, nil
}

func (s *ProductService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.productRepo.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	sort.Strings(categories)
	return categories, nil
}

func (s *ProductService) Featured(ctx context.Context, limit int) ([]model.Product, error) {
	if limit <= 0 {
		limit = defaultFeaturedLimit
	}
	products, err := s.productRepo.Featured(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("featured products: %w", err)
	}
	return products, nil
}

func (s *ProductService) GetPublished(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	product, err := s.productRepo.GetPublishedByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, apperr.ErrNotFound
	}
	return product, nil
}

func (s *ProductService) Create(ctx context.Context, req dto.CreateProductRequest) (*model.Product, error) {
	product := &model.Product{
		Name:            strings.TrimSpace(req.Name),
		Description:     strings.TrimSpace(req.Description),
		Price:           req.Price,
		Category:        req.Category,
		Image:           req.Image,
		CloudinaryID:    req.CloudinaryID,
		Available:       true,
		Ingredients:     req.Ingredients,
		Allergens:       req.Allergens,
		DietaryOptions:  req.DietaryOptions,
		Nutrition:       req.Nutrition,
		PreparationTime: req.PreparationTime,
		Difficulty:      req.Difficulty,
		Servings:        req.Servings,
		Status:          model.ProductStatusPublished,
		Chef:            "Charlene",
	}
	if product.PreparationTime == 0 {
		product.PreparationTime = 30
	}
	if product.Difficulty == "" {
		product.Difficulty = "medio"
	}
	if product.Servings == 0 {
		product.Servings = 1
	}

	if msgs := product.Validate(); len(msgs) > 0 {
		return nil, apperr.Validation(msgs...)
	}

	existing, err := s.productRepo.FindActiveByName(ctx, product.Name)
	if err != nil {
		return nil, fmt.Errorf("check product name: %w", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("a product with this name")
	}

	// The partial unique index on name is the arbiter when two creates
	// race past the read above.
	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperr.Conflict("a product with this name")
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

// Update applies only the fields present in the request. orderCount and
// rating are server-owned and not part of the request shape at all.
func (s *ProductService) Update(ctx context.Context, id primitive.ObjectID, req dto.UpdateProductRequest) (*model.Product, error) {
	product, err := s.getAny(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Image != nil {
		product.Image = *req.Image
	}
	if req.CloudinaryID != nil {
		product.CloudinaryID = *req.CloudinaryID
	}
	if req.Available != nil {
		product.Available = *req.Available
	}
	if req.Ingredients != nil {
		product.Ingredients = *req.Ingredients
	}
	if req.Allergens != nil {
		product.Allergens = *req.Allergens
	}
	if req.DietaryOptions != nil {
		product.DietaryOptions = *req.DietaryOptions
	}
	if req.Nutrition != nil {
		product.Nutrition = *req.Nutrition
	}
	if req.PreparationTime != nil {
		product.PreparationTime = *req.PreparationTime
	}
	if req.Difficulty != nil {
		product.Difficulty = *req.Difficulty
	}
	if req.Servings != nil {
		product.Servings = *req.Servings
	}
	if req.Status != nil {
		if *req.Status != model.ProductStatusDraft &&
			*req.Status != model.ProductStatusPublished &&
			*req.Status != model.ProductStatusArchived {
			return nil, apperr.Validation(fmt.Sprintf("invalid status: %q", *req.Status))
		}
		product.Status = *req.Status
	}

	if msgs := product.Validate(); len(msgs) > 0 {
		return nil, apperr.Validation(msgs...)
	}
	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperr.Conflict("a product with this name")
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return product, nil
}

// Archive is a soft delete: the row is never removed, so historical
// orders keep a resolvable product reference.
func (s *ProductService) Archive(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	product, err := s.getAny(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Status = model.ProductStatusArchived
	product.Available = false
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("archive product: %w", err)
	}
	return product, nil
}

func (s *ProductService) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) (*model.Product, error) {
	product, err := s.getAny(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Available = available
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("set availability: %w", err)
	}
	return product, nil
}

// RecordRating folds one score into the running average:
// (avg*count + new) / (count+1).
func (s *ProductService) RecordRating(ctx context.Context, id primitive.ObjectID, score float64) (*model.Product, error) {
	if score < 1 || score > 5 {
		return nil, apperr.Validation("score must be between 1 and 5")
	}
	product, err := s.getAny(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Rating = product.Rating.ApplyRating(score)
	if err := s.productRepo.UpdateRating(ctx, id, product.Rating); err != nil {
		return nil, fmt.Errorf("record rating: %w", err)
	}
	return product, nil
}

// SetImage stores the new image reference and returns the public id of
// the replaced one for cleanup.
func (s *ProductService) SetImage(ctx context.Context, id primitive.ObjectID, url, publicID string) (previousID string, err error) {
	product, err := s.getAny(ctx, id)
	if err != nil {
		return "", err
	}
	previousID = product.CloudinaryID
	product.Image = url
	product.CloudinaryID = publicID
	if err := s.productRepo.Update(ctx, product); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	return previousID, nil
}

func (s *ProductService) getAny(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, apperr.ErrNotFound
	}
	return product, nil
}

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProductStatusDraft     = "draft"
	ProductStatusPublished = "published"
	ProductStatusArchived  = "archived"
)

var Categories = []string{"antipasti", "primi", "secondi", "contorni", "dolci", "bevande", "vini"}

var Allergens = []string{
	"glutine", "uova", "latte", "noci", "arachidi", "soia", "pesce",
	"molluschi", "sedano", "senape", "sesamo", "solfiti", "lupini",
}

var DietaryOptions = []string{"vegetariano", "vegano", "senza glutine", "senza lattosio"}

type Nutrition struct {
	Calories float64 `bson:"calories,omitempty" json:"calories,omitempty"`
	Protein  float64 `bson:"protein,omitempty" json:"protein,omitempty"`
	Carbs    float64 `bson:"carbs,omitempty" json:"carbs,omitempty"`
	Fat      float64 `bson:"fat,omitempty" json:"fat,omitempty"`
}

type Rating struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

type Product struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Description     string             `bson:"description" json:"description"`
	Price           float64            `bson:"price" json:"price"`
	Category        string             `bson:"category" json:"category"`
	Image           string             `bson:"image" json:"image"`
	CloudinaryID    string             `bson:"cloudinaryId" json:"-"`
	Available       bool               `bson:"available" json:"available"`
	Ingredients     []string           `bson:"ingredients,omitempty" json:"ingredients,omitempty"`
	Allergens       []string           `bson:"allergens,omitempty" json:"allergens,omitempty"`
	DietaryOptions  []string           `bson:"dietaryOptions,omitempty" json:"dietaryOptions,omitempty"`
	Nutrition       Nutrition          `bson:"nutrition,omitempty" json:"nutrition"`
	PreparationTime int                `bson:"preparationTime" json:"preparationTime"`
	Difficulty      string             `bson:"difficulty" json:"difficulty"`
	Servings        int                `bson:"servings" json:"servings"`
	Status          string             `bson:"status" json:"status"`
	Rating          Rating             `bson:"rating" json:"rating"`
	OrderCount      int                `bson:"orderCount" json:"orderCount"`
	Chef            string             `bson:"chef,omitempty" json:"chef,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ValidCurrencyAmount reports whether v is non-negative with at most two
// decimal places.
func ValidCurrencyAmount(v float64) bool {
	d := decimal.NewFromFloat(v)
	return !d.IsNegative() && d.Equal(d.Round(2))
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func (p *Product) Validate() []string {
	var msgs []string
	if strings.TrimSpace(p.Name) == "" {
		msgs = append(msgs, "product name is required")
	} else if len(p.Name) > 100 {
		msgs = append(msgs, "product name cannot exceed 100 characters")
	}
	if strings.TrimSpace(p.Description) == "" {
		msgs = append(msgs, "description is required")
	} else if len(p.Description) > 500 {
		msgs = append(msgs, "description cannot exceed 500 characters")
	}
	if p.Price < 0 {
		msgs = append(msgs, "price cannot be negative")
	} else if !ValidCurrencyAmount(p.Price) {
		msgs = append(msgs, "price must have at most 2 decimal places")
	}
	if !oneOf(p.Category, Categories) {
		msgs = append(msgs, fmt.Sprintf("invalid category: %q", p.Category))
	}
	if p.Image == "" {
		msgs = append(msgs, "image is required")
	}
	for _, a := range p.Allergens {
		if !oneOf(a, Allergens) {
			msgs = append(msgs, fmt.Sprintf("unknown allergen: %q", a))
		}
	}
	for _, d := range p.DietaryOptions {
		if !oneOf(d, DietaryOptions) {
			msgs = append(msgs, fmt.Sprintf("unknown dietary option: %q", d))
		}
	}
	if p.PreparationTime != 0 && (p.PreparationTime < 1 || p.PreparationTime > 180) {
		msgs = append(msgs, "preparation time must be between 1 and 180 minutes")
	}
	if p.Difficulty != "" && !oneOf(p.Difficulty, []string{"facile", "medio", "difficile"}) {
		msgs = append(msgs, fmt.Sprintf("invalid difficulty: %q", p.Difficulty))
	}
	return msgs
}

// ApplyRating folds one more score into the running average.
func (r Rating) ApplyRating(score float64) Rating {
	total := r.Average*float64(r.Count) + score
	r.Count++
	r.Average = total / float64(r.Count)
	return r
}

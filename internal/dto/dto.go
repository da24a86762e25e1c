package dto

import (
	"time"

	"github.com/charlene/kitchen-api/internal/model"
)

// Envelope is the uniform response shape: {success, message?, data?, errors?}.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	Total       int64 `json:"total"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

func NewPagination(page, limit int, total int64) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		Total:       total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// --- Auth ---

type RegisterRequest struct {
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Phone    string        `json:"phone"`
	Address  model.Address `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type UpdateProfileRequest struct {
	Name    *string        `json:"name"`
	Phone   *string        `json:"phone"`
	Address *model.Address `json:"address"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// --- Products ---

type CreateProductRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           float64         `json:"price"`
	Category        string          `json:"category"`
	Image           string          `json:"image"`
	CloudinaryID    string          `json:"cloudinaryId"`
	Ingredients     []string        `json:"ingredients"`
	Allergens       []string        `json:"allergens"`
	DietaryOptions  []string        `json:"dietaryOptions"`
	Nutrition       model.Nutrition `json:"nutrition"`
	PreparationTime int             `json:"preparationTime"`
	Difficulty      string          `json:"difficulty"`
	Servings        int             `json:"servings"`
}

type UpdateProductRequest struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	Price           *float64         `json:"price"`
	Category        *string          `json:"category"`
	Image           *string          `json:"image"`
	CloudinaryID    *string          `json:"cloudinaryId"`
	Available       *bool            `json:"available"`
	Ingredients     *[]string        `json:"ingredients"`
	Allergens       *[]string        `json:"allergens"`
	DietaryOptions  *[]string        `json:"dietaryOptions"`
	Nutrition       *model.Nutrition `json:"nutrition"`
	PreparationTime *int             `json:"preparationTime"`
	Difficulty      *string          `json:"difficulty"`
	Servings        *int             `json:"servings"`
	Status          *string          `json:"status"`
}

type ListProductsRequest struct {
	Category       string `form:"category"`
	Available      *bool  `form:"available"`
	Search         string `form:"search"`
	DietaryOptions string `form:"dietaryOptions"`
	Sort           string `form:"sort,default=name"`
	Order          string `form:"order,default=asc"`
	Page           int    `form:"page,default=1" binding:"min=1"`
	Limit          int    `form:"limit,default=20" binding:"min=1,max=100"`
}

type ProductListResponse struct {
	Products   []model.Product `json:"products"`
	Pagination Pagination      `json:"pagination"`
}

type AvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

type RatingRequest struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// --- Orders ---

type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes"`
}

type DeliveryInfoRequest struct {
	Address      model.Address `json:"address"`
	Instructions string        `json:"instructions"`
}

type ContactInfoRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type CreateOrderRequest struct {
	Items         []OrderItemRequest   `json:"items"`
	OrderType     model.OrderType      `json:"orderType"`
	DeliveryInfo  *DeliveryInfoRequest `json:"deliveryInfo"`
	ContactInfo   ContactInfoRequest   `json:"contactInfo"`
	Notes         string               `json:"notes"`
	RequestedTime *time.Time           `json:"requestedTime"`
}

type ListOrdersRequest struct {
	Status string `form:"status"`
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=10" binding:"min=1,max=100"`
}

type AdminListOrdersRequest struct {
	Status    string `form:"status"`
	OrderType string `form:"orderType"`
	Date      string `form:"date"`
	Page      int    `form:"page,default=1" binding:"min=1"`
	Limit     int    `form:"limit,default=20" binding:"min=1,max=100"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
	Note   string            `json:"note"`
}

type OrderListResponse struct {
	Orders     []model.Order `json:"orders"`
	Pagination Pagination    `json:"pagination"`
}

type AdminOrderListResponse struct {
	Orders     []model.Order `json:"orders"`
	Pagination Pagination    `json:"pagination"`
	TodayStats TodayStats    `json:"todayStats"`
}

// TodayStats are the same-day aggregate counts on the admin order list.
type TodayStats struct {
	TotalOrders     int64   `json:"totalOrders"`
	TotalRevenue    float64 `json:"totalRevenue"`
	PendingOrders   int64   `json:"pendingOrders"`
	CompletedOrders int64   `json:"completedOrders"`
}

type OrderStatistics struct {
	TotalOrders       int64   `json:"totalOrders"`
	TotalRevenue      float64 `json:"totalRevenue"`
	AverageOrderValue float64 `json:"averageOrderValue"`
	DeliveryOrders    int64   `json:"deliveryOrders"`
	PickupOrders      int64   `json:"pickupOrders"`
	CancelledOrders   int64   `json:"cancelledOrders"`
}

type TopProduct struct {
	ProductID     string  `json:"productId"`
	Name          string  `json:"name"`
	TotalQuantity int64   `json:"totalQuantity"`
	TotalRevenue  float64 `json:"totalRevenue"`
}

type StatisticsResponse struct {
	Period      string          `json:"period"`
	Statistics  OrderStatistics `json:"statistics"`
	TopProducts []TopProduct    `json:"topProducts"`
}

// --- Uploads ---

type UploadResponse struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

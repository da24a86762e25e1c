package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charlene/kitchen-api/internal/dto"
	"github.com/charlene/kitchen-api/internal/media"
	"github.com/charlene/kitchen-api/internal/service"
)

type ProductHandler struct {
	productService *service.ProductService
	uploader       media.Uploader
	log            *slog.Logger
}

func NewProductHandler(productService *service.ProductService, uploader media.Uploader, log *slog.Logger) *ProductHandler {
	return &ProductHandler{productService: productService, uploader: uploader, log: log}
}

func parseObjectID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid id")
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *ProductHandler) List(c *gin.Context) {
	var req dto.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.productService.List(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "", resp)
}

func (h *ProductHandler) Categories(c *gin.Context) {
	categories, err := h.productService.Categories(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "", categories)
}

func (h *ProductHandler) Featured(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	products, err := h.productService.Featured(c.Request.Context(), limit)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "", products)
}

func (h *ProductHandler) GetByID(c *gin.Context) {
	id, parsed := parseObjectID(c)
	if !parsed {
		return
	}

	product, err := h.productService.GetPublished(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "", product)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	product, err := h.productService.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	created(c, "product created", product)
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, parsed := parseObjectID(c)
	if !parsed {
		return
	}

	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	product, err := h.productService.Update(c.Request.Context(), id, req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "product updated", product)
}

func (h *ProductHandler) Archive(c *gin.Context) {
	id, parsed := parseObjectID(c)
	if !parsed {
		return
	}

	product, err := h.productService.Archive(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "product archived", product)
}

func (h *ProductHandler) SetAvailability(c *gin.Context) {
	id, parsed := parseObjectID(c)
	if !parsed {
		return
	}

	var req dto.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "available is required")
		return
	}

	product, err := h.productService.SetAvailability(c.Request.Context(), id, *req.Available)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "availability updated", product)
}

func (h *ProductHandler) Rate(c *gin.Context) {
	id, parsed := parseObjectID(c)
	if !parsed {
		return
	}

	var req dto.RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	product, err := h.productService.RecordRating(c.Request.Context(), id, req.Score)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "rating recorded", product)
}

func (h *ProductHandler) UploadImage(c *gin.Context) {
	id, parsed := parseObjectID(c)
	if !parsed {
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image file is required")
		return
	}
	if err := media.CheckUpload(fh, media.MaxProductImageSize); err != nil {
		badRequest(c, err.Error())
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, h.log, err)
		return
	}
	defer f.Close()

	img, err := h.uploader.UploadProductImage(c.Request.Context(), f)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	previous, err := h.productService.SetImage(c.Request.Context(), id, img.URL, img.PublicID)
	if err != nil {
		// The product row was not updated; drop the orphaned upload.
		if delErr := h.uploader.Delete(c.Request.Context(), img.PublicID); delErr != nil {
			h.log.Warn("delete orphaned image", "public_id", img.PublicID, "error", delErr)
		}
		fail(c, h.log, err)
		return
	}
	if previous != "" {
		if err := h.uploader.Delete(c.Request.Context(), previous); err != nil {
			h.log.Warn("delete previous image", "public_id", previous, "error", err)
		}
	}

	ok(c, "image uploaded", dto.UploadResponse{URL: img.URL, PublicID: img.PublicID})
}

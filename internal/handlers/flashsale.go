package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/exclusive/internal/models"
)

// FlashSaleHandler manages flash sale campaigns.
type FlashSaleHandler struct {
	db *gorm.DB
}

// NewFlashSaleHandler constructs a FlashSaleHandler.
func NewFlashSaleHandler(db *gorm.DB) *FlashSaleHandler {
	return &FlashSaleHandler{db: db}
}

// ListActive returns sales whose window covers the current time, soonest
// ending first, annotated with the remaining seconds and the back-computed
// original price per item.
func (h *FlashSaleHandler) ListActive(c *fiber.Ctx) error {
	now := time.Now()

	var sales []models.FlashSale
	err := h.db.
		Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, now, now).
		Preload("Items", "is_active = ?", true).
		Preload("Items.Item.Prices").
		Order("end_date asc").
		Find(&sales).Error
	if err != nil {
		return err
	}

	response := make([]fiber.Map, 0, len(sales))
	for _, sale := range sales {
		response = append(response, flashSaleResponse(sale, now))
	}

	return c.JSON(response)
}

// GetFlashSale returns a single sale with its items.
func (h *FlashSaleHandler) GetFlashSale(c *fiber.Ctx) error {
	saleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid flash sale id")
	}

	var sale models.FlashSale
	err = h.db.
		Preload("Items", "is_active = ?", true).
		Preload("Items.Item.Prices").
		First(&sale, "id = ?", saleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "flash sale not found")
		}
		return err
	}

	return c.JSON(flashSaleResponse(sale, time.Now()))
}

type flashSaleItemRequest struct {
	ItemID string `json:"itemId"`
}

type createFlashSaleRequest struct {
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	DiscountPercent float64                `json:"discountPercent"`
	StartDate       string                 `json:"startDate"`
	EndDate         string                 `json:"endDate"`
	IsActive        bool                   `json:"isActive"`
	Items           []flashSaleItemRequest `json:"items"`
}

// CreateFlashSale creates a sale and optionally its item links.
func (h *FlashSaleHandler) CreateFlashSale(c *fiber.Ctx) error {
	var req createFlashSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	if req.DiscountPercent <= 0 || req.DiscountPercent >= 100 {
		return fiber.NewError(fiber.StatusBadRequest, "discountPercent must be between 0 and 100")
	}

	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid startDate")
	}
	endDate, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid endDate")
	}
	if !endDate.After(startDate) {
		return fiber.NewError(fiber.StatusBadRequest, "endDate must be after startDate")
	}

	sale := models.FlashSale{
		Name:            req.Name,
		Description:     req.Description,
		DiscountPercent: req.DiscountPercent,
		StartDate:       startDate,
		EndDate:         endDate,
		IsActive:        req.IsActive,
	}

	for _, item := range req.Items {
		itemID, err := uuid.Parse(item.ItemID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
		}
		sale.Items = append(sale.Items, models.FlashSaleItem{ItemID: itemID, IsActive: true})
	}

	if err := h.db.Create(&sale).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(flashSaleResponse(sale, time.Now()))
}

type updateFlashSaleRequest struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	DiscountPercent *float64 `json:"discountPercent"`
	StartDate       *string  `json:"startDate"`
	EndDate         *string  `json:"endDate"`
	IsActive        *bool    `json:"isActive"`
}

// UpdateFlashSale patches sale fields.
func (h *FlashSaleHandler) UpdateFlashSale(c *fiber.Ctx) error {
	saleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid flash sale id")
	}

	var sale models.FlashSale
	if err := h.db.First(&sale, "id = ?", saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "flash sale not found")
		}
		return err
	}

	var req updateFlashSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.DiscountPercent != nil {
		if *req.DiscountPercent <= 0 || *req.DiscountPercent >= 100 {
			return fiber.NewError(fiber.StatusBadRequest, "discountPercent must be between 0 and 100")
		}
		updates["discount_percent"] = *req.DiscountPercent
	}
	if req.StartDate != nil {
		startDate, err := time.Parse(time.RFC3339, *req.StartDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid startDate")
		}
		updates["start_date"] = startDate
	}
	if req.EndDate != nil {
		endDate, err := time.Parse(time.RFC3339, *req.EndDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid endDate")
		}
		updates["end_date"] = endDate
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := h.db.Model(&sale).Updates(updates).Error; err != nil {
			return err
		}
	}

	return c.JSON(flashSaleResponse(sale, time.Now()))
}

// DeleteFlashSale removes a sale and its item links.
func (h *FlashSaleHandler) DeleteFlashSale(c *fiber.Ctx) error {
	saleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid flash sale id")
	}

	if err := h.db.Where("flash_sale_id = ?", saleID).Delete(&models.FlashSaleItem{}).Error; err != nil {
		return err
	}
	if err := h.db.Delete(&models.FlashSale{}, "id = ?", saleID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Flash sale deleted"})
}

// AddItem links a catalog item into a sale.
func (h *FlashSaleHandler) AddItem(c *fiber.Ctx) error {
	saleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid flash sale id")
	}

	var req flashSaleItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
	}

	link := models.FlashSaleItem{FlashSaleID: saleID, ItemID: itemID, IsActive: true}
	if err := h.db.Create(&link).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(link)
}

// RemoveItem unlinks an item from its sale.
func (h *FlashSaleHandler) RemoveItem(c *fiber.Ctx) error {
	linkID, err := uuid.Parse(c.Params("itemId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid flash sale item id")
	}

	if err := h.db.Delete(&models.FlashSaleItem{}, "id = ?", linkID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Flash sale item removed"})
}

func flashSaleResponse(sale models.FlashSale, now time.Time) fiber.Map {
	items := make([]fiber.Map, 0, len(sale.Items))
	for _, link := range sale.Items {
		entry := fiber.Map{
			"id":     link.ID,
			"itemId": link.ItemID,
			"item":   link.Item,
		}
		if link.Item != nil {
			if salePrice := activeUnitPrice(*link.Item); salePrice > 0 {
				entry["salePrice"] = salePrice
				entry["originalPrice"] = sale.OriginalPrice(salePrice)
			}
		}
		items = append(items, entry)
	}

	return fiber.Map{
		"id":               sale.ID,
		"name":             sale.Name,
		"description":      sale.Description,
		"discountPercent":  sale.DiscountPercent,
		"startDate":        sale.StartDate,
		"endDate":          sale.EndDate,
		"isActive":         sale.IsActive,
		"secondsRemaining": sale.SecondsRemaining(now),
		"items":            items,
	}
}

func activeUnitPrice(item models.Item) float64 {
	for _, price := range item.Prices {
		if price.IsActive {
			return price.EffectivePrice()
		}
	}
	return 0
}

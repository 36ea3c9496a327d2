// Package menu ingests digitized menus. The extraction itself (vision model
// reading a photographed menu) happens outside this service; what arrives
// here is the structured JSON it produced, translated into catalog upserts.
package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"zenda-system/internal/database/models"
)

type ExtractedItem struct {
	Name  string          `json:"name" binding:"required"`
	Price decimal.Decimal `json:"price" binding:"required"`
	SKU   string          `json:"sku,omitempty"`
}

type ExtractedCategory struct {
	Name  string          `json:"name" binding:"required"`
	Items []ExtractedItem `json:"items" binding:"required,min=1,dive"`
}

type Extract struct {
	Categories []ExtractedCategory `json:"categories" binding:"required,min=1,dive"`
}

type ImportResult struct {
	CategoriesCreated int      `json:"categories_created"`
	ProductsCreated   int      `json:"products_created"`
	ProductsUpdated   int      `json:"products_updated"`
	Skipped           []string `json:"skipped,omitempty"`
}

type Importer struct {
	db *gorm.DB
}

func NewImporter(db *gorm.DB) *Importer {
	return &Importer{db: db}
}

// Import upserts the extract in one transaction. Existing products are
// matched by SKU when the extract carries one, otherwise by name within the
// category; matches get a price update, everything else is created. Items
// with a non-positive price are skipped and reported, not fatal.
func (im *Importer) Import(ctx context.Context, extract Extract) (ImportResult, error) {
	var result ImportResult

	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, cat := range extract.Categories {
			category, created, err := upsertCategory(tx, cat.Name)
			if err != nil {
				return err
			}
			if created {
				result.CategoriesCreated++
			}

			for _, item := range cat.Items {
				if !item.Price.IsPositive() {
					result.Skipped = append(result.Skipped, item.Name)
					continue
				}

				product, err := findExisting(tx, category.ID, item)
				if err != nil {
					return err
				}

				if product != nil {
					product.Price = item.Price.Round(2)
					product.CategoryID = &category.ID
					product.IsActive = true
					if err := tx.Save(product).Error; err != nil {
						return err
					}
					result.ProductsUpdated++
					continue
				}

				sku := item.SKU
				if sku == "" {
					sku = generateSKU(tx, item.Name)
				}
				newProduct := models.Product{
					SKU:        sku,
					Name:       item.Name,
					Price:      item.Price.Round(2),
					Cost:       decimal.Zero,
					CategoryID: &category.ID,
					IsActive:   true,
				}
				if err := tx.Create(&newProduct).Error; err != nil {
					return err
				}
				result.ProductsCreated++
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	return result, nil
}

func upsertCategory(tx *gorm.DB, name string) (*models.Category, bool, error) {
	var category models.Category
	err := tx.Where("name = ?", name).First(&category).Error
	if err == nil {
		if !category.IsActive {
			category.IsActive = true
			if err := tx.Save(&category).Error; err != nil {
				return nil, false, err
			}
		}
		return &category, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	category = models.Category{Name: name, IsActive: true}
	if err := tx.Create(&category).Error; err != nil {
		return nil, false, err
	}
	return &category, true, nil
}

func findExisting(tx *gorm.DB, categoryID int64, item ExtractedItem) (*models.Product, error) {
	var product models.Product

	if item.SKU != "" {
		err := tx.Where("sku = ?", item.SKU).First(&product).Error
		if err == nil {
			return &product, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, nil
	}

	err := tx.Where("category_id = ? AND name = ?", categoryID, item.Name).First(&product).Error
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return nil, nil
}

// generateSKU derives a slug-style SKU from the item name and suffixes it
// until it is free.
func generateSKU(tx *gorm.DB, name string) string {
	base := slugify(name)
	if base == "" {
		base = "ITEM"
	}

	sku := base
	for i := 2; ; i++ {
		var count int64
		tx.Model(&models.Product{}).Where("sku = ?", sku).Count(&count)
		if count == 0 {
			return sku
		}
		sku = fmt.Sprintf("%s-%d", base, i)
	}
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
		if b.Len() >= 24 {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}

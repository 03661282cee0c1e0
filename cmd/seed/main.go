// Seeds the catalog with a starting set of categories and products. Kept out
// of the repositories on purpose: bootstrap data is an operational concern.
package main

import (
	"context"
	"log"

	"gorm.io/gorm"

	"github.com/akulikov/webshop/internal/config"
	"github.com/akulikov/webshop/internal/models"
	"github.com/akulikov/webshop/pkg/db"
)

type seedProduct struct {
	name         string
	description  string
	price        int64
	stock        uint
	categoryName string
	categorySlug string
}

var products = []seedProduct{
	{
		name:         "Isabelle Pineapple Cakes",
		price:        1899,
		stock:        3,
		categoryName: "Biscuits & Crackers",
		categorySlug: "biscuits-and-crackers",
	},
	{
		name:         "Khon Guan Fancy Gem Cookies",
		price:        299,
		stock:        3,
		categoryName: "Biscuits & Crackers",
		categorySlug: "biscuits-and-crackers",
	},
}

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	database, err := db.Open(context.Background(), configuration.DSN())
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	err = database.Transaction(func(tx *gorm.DB) error {
		for _, sp := range products {
			category := models.Category{Name: sp.categoryName, Slug: sp.categorySlug}
			if err := tx.Where(models.Category{Slug: sp.categorySlug}).
				FirstOrCreate(&category).Error; err != nil {
				return err
			}

			product := models.Product{
				Name:        sp.name,
				Description: sp.description,
				Price:       sp.price,
				Stock:       sp.stock,
				CategoryID:  category.ID,
			}
			if err := tx.Create(&product).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("seed error: %v", err)
	}

	log.Printf("seeded %d products", len(products))
}

// Package seeder fills a store with fake orders and customers for local
// development and demos.
package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/procsift/procsift/internal/models"
	"github.com/procsift/procsift/internal/repository"
)

type Seeder struct {
	store repository.Store
	faker *gofakeit.Faker
}

func New(store repository.Store, seed int64) *Seeder {
	return &Seeder{
		store: store,
		faker: gofakeit.New(seed),
	}
}

// Seed inserts count fake unsent orders, each attached to one of a small
// pool of fake customers.
func (s *Seeder) Seed(ctx context.Context, count int) error {
	customerIDs, err := s.seedCustomers(ctx, 5)
	if err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		customerID := customerIDs[s.faker.IntRange(0, len(customerIDs)-1)]
		number := fmt.Sprintf("%d-%d", s.faker.Year(), s.faker.Number(100000, 999999))
		endDate := time.Now().AddDate(0, 0, s.faker.IntRange(1, 30)).Format("2006-01-02")

		detail := map[string]any{
			"number":  number,
			"name":    s.faker.ProductName(),
			"type":    "commercial",
			"endDate": endDate,
			"categories": []string{
				s.faker.ProductCategory(),
				s.faker.ProductCategory(),
			},
			"contact": fmt.Sprintf("%s %s <%s>",
				s.faker.LastName(), s.faker.FirstName(), s.faker.Email()),
			"regions":   []string{s.faker.City()},
			"documents": []map[string]string{},
		}
		detailPayload, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("failed to marshal fake detail: %w", err)
		}
		rawPayload, err := json.Marshal(map[string]any{"number": number})
		if err != nil {
			return fmt.Errorf("failed to marshal fake listing: %w", err)
		}

		order := &models.Order{
			OrderID:       number,
			OrderType:     "commercial",
			URL:           fmt.Sprintf("https://example.test/tenders/%s", number),
			RawPayload:    rawPayload,
			DetailPayload: detailPayload,
			CustomerID:    customerID,
		}
		if err := s.store.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to insert fake order: %w", err)
		}
	}
	return nil
}

func (s *Seeder) seedCustomers(ctx context.Context, count int) ([]string, error) {
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("%d", s.faker.Number(1000, 9999))
		payload, err := json.Marshal(map[string]any{
			"code": id,
			"name": s.faker.Company(),
			"inn":  fmt.Sprintf("%d", s.faker.Number(1000000000, 9999999999)),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal fake customer: %w", err)
		}
		url := fmt.Sprintf("https://example.test/customers/%s", id)
		if _, err := s.store.UpsertCustomer(ctx, id, url, payload); err != nil {
			return nil, fmt.Errorf("failed to insert fake customer: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

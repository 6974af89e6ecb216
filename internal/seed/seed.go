package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/finledger/backoffice/internal/customer/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnsureDefaultOrg initializes the document number counter for the bootstrap
// org so the first statement allocates STMT-000001 without a racing upsert.
func EnsureDefaultOrg(db *gorm.DB, orgID int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if orgID == 0 {
		return errors.New("seed org id is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Exec(
		`INSERT INTO document_sequences (org_id, last_value)
		 VALUES (?, 0)
		 ON CONFLICT (org_id) DO NOTHING`,
		orgID,
	).Error
}

// SeedDemoData inserts a small set of customers with open receivables so a
// local environment can generate statements immediately. It is a no-op when
// the org already has customers.
func SeedDemoData(db *gorm.DB, orgID int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM customers WHERE org_id = ?`, orgID,
		).Scan(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		demos := []struct {
			name  string
			email string
			open  []struct {
				reference string
				amount    int64
				dueDays   int
			}
		}{
			{
				name:  "Acme Industrial",
				email: "ap@acme-industrial.test",
				open: []struct {
					reference string
					amount    int64
					dueDays   int
				}{
					{"INV-1001", 125000, -45},
					{"INV-1002", 84000, -10},
				},
			},
			{
				name:  "Northwind Trading",
				email: "billing@northwind.test",
				open: []struct {
					reference string
					amount    int64
					dueDays   int
				}{
					{"INV-2001", 56000, 12},
				},
			},
		}

		for _, demo := range demos {
			customerID := node.Generate()
			customer := customerdomain.Customer{
				ID:        customerID,
				OrgID:     snowflake.ID(orgID),
				Code:      "demo-" + customerID.Base36(),
				Name:      demo.name,
				Email:     demo.email,
				Currency:  "USD",
				Metadata:  datatypes.JSONMap{"seeded": true},
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&customer).Error; err != nil {
				return err
			}

			for _, record := range demo.open {
				due := now.AddDate(0, 0, record.dueDays)
				if err := tx.WithContext(ctx).Exec(
					`INSERT INTO ledger_records (id, org_id, customer_id, reference, amount, currency, issued_at, due_date, created_at)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					node.Generate(),
					orgID,
					customerID,
					record.reference,
					record.amount,
					"USD",
					due.AddDate(0, 0, -30),
					due,
					now,
				).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

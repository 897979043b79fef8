package repository

import (
	"context"
	"testing"

	"github.com/despensa-next/internal/models"

	"gorm.io/gorm"
)

func TestProviderCreateIfAbsentKeepsTransactionUsable(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewProviderRepository(db)
	ctx := context.Background()

	first := &models.Provider{Name: "Central de Abasto", NameKey: "central de abasto"}
	created, err := repo.CreateIfAbsent(ctx, first)
	if err != nil || !created {
		t.Fatalf("first create want created got created=%v err=%v", created, err)
	}
	if first.ID == 0 {
		t.Fatalf("created provider should have id")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		dup := &models.Provider{Name: "CENTRAL de abasto", NameKey: "central de abasto"}
		created, err := txRepo.CreateIfAbsent(ctx, dup)
		if err != nil {
			return err
		}
		if created {
			t.Errorf("duplicate name key should not be created")
		}
		existing, err := txRepo.GetByNameKey(ctx, "central de abasto")
		if err != nil {
			return err
		}
		if existing == nil || existing.ID != first.ID {
			t.Errorf("read back want id %d got %+v", first.ID, existing)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction after conflict failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.Provider{}).Count(&count).Error; err != nil {
		t.Fatalf("count providers failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("want 1 provider got %d", count)
	}
}

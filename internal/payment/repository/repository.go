package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tair/payment-service/internal/payment/domain"
)

// GormPaymentRepository is the GORM backed durable store
type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Payment{})
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(payment).Error
	})
	if err != nil {
		return storageError("create", err)
	}
	return nil
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.WithContext(ctx).Where("payment_id = ?", id).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{PaymentID: id}
		}
		return nil, storageError("find", err)
	}
	return &payment, nil
}

// FindAll returns every payment in creation order
func (r *GormPaymentRepository) FindAll(ctx context.Context) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("payment_id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, storageError("list", err)
	}
	return payments, nil
}

func (r *GormPaymentRepository) TransitionStatus(ctx context.Context, id string, from, to domain.Status, processedAt time.Time, metadata map[string]any, apply domain.TransitionFunc) (*domain.Payment, error) {
	var (
		updated  domain.Payment
		applyErr error
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Payment{}).
			Where("payment_id = ? AND status = ?", id, from).
			Updates(map[string]any{
				"status":       to,
				"processed_at": processedAt,
				"metadata":     datatypes.JSONMap(metadata),
			})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&domain.Payment{}).Where("payment_id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return &domain.NotFoundError{PaymentID: id}
			}
			return domain.ErrStatusChanged
		}

		// the updated row stays locked until commit, so apply runs for the winner only
		if apply != nil {
			if applyErr = apply(ctx); applyErr != nil {
				return applyErr
			}
		}

		return tx.Where("payment_id = ?", id).First(&updated).Error
	})
	if applyErr != nil {
		return nil, applyErr
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrStatusChanged) {
			return nil, err
		}
		return nil, storageError("transition", err)
	}

	return &updated, nil
}

func (r *GormPaymentRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return storageError("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storageError("ping", err)
	}
	return nil
}

func storageError(op string, err error) error {
	return &domain.StorageUnavailableError{Op: op, Err: err}
}

package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valet-backend/models"
	"valet-backend/workflow"
)

// GormStore implements workflow.Store over the relational database. Mutations
// run in a transaction with a row lock (where the dialect supports it), so a
// claim race between two drivers resolves to exactly one winner.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) All(ctx context.Context) ([]models.ParkingRequest, error) {
	var reqs []models.ParkingRequest
	if err := s.db.WithContext(ctx).Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *GormStore) Get(ctx context.Context, id int64) (*models.ParkingRequest, error) {
	var req models.ParkingRequest
	err := s.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *GormStore) Create(ctx context.Context, req *models.ParkingRequest) error {
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *GormStore) Mutate(ctx context.Context, id int64, fn func(*models.ParkingRequest) error) (*models.ParkingRequest, error) {
	var out models.ParkingRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		// sqlite (tests) has no FOR UPDATE; its writes serialize anyway.
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var req models.ParkingRequest
		if err := q.First(&req, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.ErrNotFound
			}
			return err
		}
		if err := fn(&req); err != nil {
			return err
		}
		// Save writes all fields, including cleared valet columns.
		if err := tx.Save(&req).Error; err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GormStore) AppendEvent(ctx context.Context, ev *models.RequestEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.RequestEvent{}).
			Where("request_id = ?", ev.RequestID).Count(&count).Error; err != nil {
			return err
		}
		ev.Seq = int(count) + 1
		return tx.Create(ev).Error
	})
}

func (s *GormStore) Events(ctx context.Context, requestID int64) ([]models.RequestEvent, error) {
	var evs []models.RequestEvent
	err := s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("seq ASC").
		Find(&evs).Error
	if err != nil {
		return nil, err
	}
	return evs, nil
}

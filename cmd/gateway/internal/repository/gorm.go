package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/priya3054/ZerodhaClone/pkg/config"
	"github.com/priya3054/ZerodhaClone/pkg/models"
)

// Compile-time checks
var (
	_ HoldingsStore  = (*GormStore)(nil)
	_ PositionsStore = (*GormStore)(nil)
	_ OrdersStore    = (*GormStore)(nil)
	_ AccountStore   = (*GormStore)(nil)
)

type GormStore struct {
	db *gorm.DB
}

// OpenDatabase connects using the configured driver and migrates the tables.
func OpenDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.Holding{}, &models.Position{}, &models.Order{}, &models.User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) DistinctHoldingNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&models.Holding{}).Distinct("name").Pluck("name", &names).Error
	return names, err
}

func (s *GormStore) ListHoldings(ctx context.Context) ([]models.Holding, error) {
	var rows []models.Holding
	err := s.db.WithContext(ctx).Order("id").Find(&rows).Error
	return rows, err
}

func (s *GormStore) DistinctPositionNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&models.Position{}).Distinct("name").Pluck("name", &names).Error
	return names, err
}

func (s *GormStore) ListPositions(ctx context.Context) ([]models.Position, error) {
	var rows []models.Position
	err := s.db.WithContext(ctx).Order("id").Find(&rows).Error
	return rows, err
}

func (s *GormStore) InsertOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

// ListOrders returns orders newest first.
func (s *GormStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&rows).Error
	return rows, err
}

// Credit adds amount to the user's balance and returns the updated user.
func (s *GormStore) Credit(ctx context.Context, userID string, amount decimal.Decimal) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		user.Balance = user.Balance.Add(amount)
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Seed inserts the demo portfolio when both portfolio tables are empty, and
// the demo account when no account exists. It reports whether anything was
// inserted.
func (s *GormStore) Seed(ctx context.Context) (bool, error) {
	db := s.db.WithContext(ctx)

	var holdings, positions, users int64
	if err := db.Model(&models.Holding{}).Count(&holdings).Error; err != nil {
		return false, err
	}
	if err := db.Model(&models.Position{}).Count(&positions).Error; err != nil {
		return false, err
	}
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return false, err
	}

	seedPortfolio := holdings == 0 && positions == 0
	seedAccount := users == 0
	if !seedPortfolio && !seedAccount {
		return false, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if seedPortfolio {
			holdingRows := demoHoldings()
			if err := tx.Create(&holdingRows).Error; err != nil {
				return err
			}
			positionRows := demoPositions()
			if err := tx.Create(&positionRows).Error; err != nil {
				return err
			}
		}
		if seedAccount {
			account := demoAccount()
			return tx.Create(&account).Error
		}
		return nil
	})
	return err == nil, err
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, feature *Feature) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Feature, error)
	FindByKey(ctx context.Context, db *gorm.DB, key string) (*Feature, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Feature, error)
	ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Feature, error)
	ListDefaultEnabled(ctx context.Context, db *gorm.DB) ([]Feature, error)
	Update(ctx context.Context, db *gorm.DB, feature *Feature) error
}

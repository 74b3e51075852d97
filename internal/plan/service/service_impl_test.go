package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	featuredomain "github.com/blicktrack/platform/internal/feature/domain"
	featurerepo "github.com/blicktrack/platform/internal/feature/repository"
	"github.com/blicktrack/platform/internal/migration"
	"github.com/blicktrack/platform/internal/plan/domain"
	planrepo "github.com/blicktrack/platform/internal/plan/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func newPlanService(t *testing.T, db *gorm.DB, node *snowflake.Node) domain.Service {
	t.Helper()
	return New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        planrepo.Provide(),
		FeatureRepo: featurerepo.Provide(),
	})
}

func seedFeature(t *testing.T, db *gorm.DB, node *snowflake.Node, key string, active bool) featuredomain.Feature {
	t.Helper()
	now := time.Now().UTC()
	feature := featuredomain.Feature{
		ID: node.Generate(), Key: key, Name: key, Category: "core",
		Active: active, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Create(&feature).Error)
	return feature
}

func TestCreateRejectsDuplicateTier(t *testing.T) {
	db := openTestDB(t)
	node := mustNode(t)
	svc := newPlanService(t, db, node)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Tier: "Pro", MaxUsers: 10})
	require.NoError(t, err)

	// Tiers are case-insensitive through normalization.
	_, err = svc.Create(ctx, domain.CreateRequest{Tier: "PRO"})
	require.ErrorIs(t, err, domain.ErrDuplicateTier)
}

func TestReplaceFeaturesIsAuthoritative(t *testing.T) {
	db := openTestDB(t)
	node := mustNode(t)
	svc := newPlanService(t, db, node)
	ctx := context.Background()

	plan, err := svc.Create(ctx, domain.CreateRequest{Tier: "pro"})
	require.NoError(t, err)

	a := seedFeature(t, db, node, "projects", true)
	b := seedFeature(t, db, node, "reports", true)
	c := seedFeature(t, db, node, "sso", true)

	grants, err := svc.ReplaceFeatures(ctx, domain.ReplaceFeaturesRequest{
		PlanID:     plan.ID,
		FeatureIDs: []string{a.ID.String(), b.ID.String()},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"projects", "reports"}, grantKeys(grants))

	// The second replace drops what it does not mention.
	grants, err = svc.ReplaceFeatures(ctx, domain.ReplaceFeaturesRequest{
		PlanID:     plan.ID,
		FeatureIDs: []string{b.ID.String(), c.ID.String()},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"reports", "sso"}, grantKeys(grants))

	grants, err = svc.ReplaceFeatures(ctx, domain.ReplaceFeaturesRequest{PlanID: plan.ID})
	require.NoError(t, err)
	require.Empty(t, grants)
}

func TestReplaceFeaturesRejectsUnknownAndInactive(t *testing.T) {
	db := openTestDB(t)
	node := mustNode(t)
	svc := newPlanService(t, db, node)
	ctx := context.Background()

	plan, err := svc.Create(ctx, domain.CreateRequest{Tier: "starter"})
	require.NoError(t, err)

	archived := seedFeature(t, db, node, "legacy", false)

	_, err = svc.ReplaceFeatures(ctx, domain.ReplaceFeaturesRequest{
		PlanID:     plan.ID,
		FeatureIDs: []string{node.Generate().String()},
	})
	require.ErrorIs(t, err, domain.ErrFeatureNotFound)

	_, err = svc.ReplaceFeatures(ctx, domain.ReplaceFeaturesRequest{
		PlanID:     plan.ID,
		FeatureIDs: []string{archived.ID.String()},
	})
	require.ErrorIs(t, err, domain.ErrFeatureInactive)
}

func TestSetFeatureEnabledTogglesGrant(t *testing.T) {
	db := openTestDB(t)
	node := mustNode(t)
	svc := newPlanService(t, db, node)
	ctx := context.Background()

	plan, err := svc.Create(ctx, domain.CreateRequest{Tier: "pro"})
	require.NoError(t, err)
	feature := seedFeature(t, db, node, "projects", true)

	_, err = svc.ReplaceFeatures(ctx, domain.ReplaceFeaturesRequest{
		PlanID:     plan.ID,
		FeatureIDs: []string{feature.ID.String()},
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetFeatureEnabled(ctx, domain.SetFeatureEnabledRequest{
		PlanID:     plan.ID,
		FeatureKey: "projects",
		Enabled:    false,
	}))

	grants, err := svc.ListFeatures(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.False(t, grants[0].Enabled)

	err = svc.SetFeatureEnabled(ctx, domain.SetFeatureEnabledRequest{
		PlanID:     plan.ID,
		FeatureKey: "sso",
		Enabled:    true,
	})
	require.ErrorIs(t, err, domain.ErrFeatureNotFound)
}

func grantKeys(grants []domain.FeatureGrantResponse) []string {
	keys := make([]string, 0, len(grants))
	for _, grant := range grants {
		keys = append(keys, grant.Key)
	}
	return keys
}

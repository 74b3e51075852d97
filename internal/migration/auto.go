package migration

import (
	"errors"

	auditdomain "github.com/blicktrack/platform/internal/audit/domain"
	featuredomain "github.com/blicktrack/platform/internal/feature/domain"
	plandomain "github.com/blicktrack/platform/internal/plan/domain"
	projectdomain "github.com/blicktrack/platform/internal/project/domain"
	tenantdomain "github.com/blicktrack/platform/internal/tenant/domain"
	userdomain "github.com/blicktrack/platform/internal/user/domain"
	"gorm.io/gorm"
)

// AutoMigrate builds the schema from the models for dialects the SQL
// migrations do not target.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	return db.AutoMigrate(
		&plandomain.Plan{},
		&featuredomain.Feature{},
		&plandomain.PlanFeature{},
		&tenantdomain.Tenant{},
		&userdomain.User{},
		&userdomain.UserFeatureAccess{},
		&projectdomain.Project{},
		&auditdomain.AuditLog{},
	)
}

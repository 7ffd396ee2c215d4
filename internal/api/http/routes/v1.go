package routes

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wemb-pms/pms-backend/config"
	cathttp "github.com/wemb-pms/pms-backend/internal/catalog/http"
	catservice "github.com/wemb-pms/pms-backend/internal/catalog/service"
	"github.com/wemb-pms/pms-backend/internal/codes"
	"github.com/wemb-pms/pms-backend/internal/departments"
	esthttp "github.com/wemb-pms/pms-backend/internal/estimation/http"
	estrepo "github.com/wemb-pms/pms-backend/internal/estimation/repository"
	estservice "github.com/wemb-pms/pms-backend/internal/estimation/service"
	projhttp "github.com/wemb-pms/pms-backend/internal/projects/http"
	projrepo "github.com/wemb-pms/pms-backend/internal/projects/repository"
	projservice "github.com/wemb-pms/pms-backend/internal/projects/service"
	setthttp "github.com/wemb-pms/pms-backend/internal/settlement/http"
	"github.com/wemb-pms/pms-backend/internal/settlement/reconcile"
	settrepo "github.com/wemb-pms/pms-backend/internal/settlement/repository"
	settservice "github.com/wemb-pms/pms-backend/internal/settlement/service"
	"github.com/wemb-pms/pms-backend/internal/unitprices"
	"github.com/wemb-pms/pms-backend/internal/users"
)

// V1Deps carries the shared resources. Pool backs the pgx repositories and
// SQL the database/sql ones; both point at the same database.
type V1Deps struct {
	Pool    *pgxpool.Pool
	SQL     *sql.DB
	Catalog *catservice.CatalogService
	Config  *config.Config
	Log     *zap.Logger
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	log := dep.Log
	if log == nil {
		log = zap.NewNop()
	}
	api := r.Group("/api/v1")

	projectSvc := projservice.NewProjectService(projrepo.NewProjectRepository(dep.SQL))
	projectsGroup := api.Group("/projects")
	projhttp.New(projectSvc, log.Named("projects")).Register(projectsGroup)

	markers := reconcile.Markers{
		Internal: dep.Config.Settlement.InternalMarker,
		External: dep.Config.Settlement.ExternalMarker,
	}
	settlementSvc := settservice.NewSettlementService(
		settrepo.NewProfitabilityRepository(dep.SQL),
		settrepo.NewSettlementRepository(dep.SQL),
		projectSvc,
		markers,
		log.Named("settlement"),
	)
	setthttp.New(settlementSvc, log.Named("settlement")).Register(projectsGroup)

	estimationSvc := estservice.NewEstimationService(
		estrepo.NewRepo(dep.Pool),
		dep.Catalog,
		projectSvc,
		dep.Config.Estimation.MMCalculationBase,
		log.Named("estimation"),
	)
	esthttp.New(estimationSvc, log.Named("estimation")).Register(api.Group("/md-estimations"))
	cathttp.New(dep.Catalog).Register(api.Group("/md-weights"))

	departments.NewHandler(departments.NewRepo(dep.Pool), log.Named("departments")).Register(api.Group("/departments"))
	users.NewHandler(users.NewRepo(dep.Pool), log.Named("users")).Register(api.Group("/users"))
	codes.NewHandler(codes.NewRepo(dep.Pool), log.Named("codes")).Register(api.Group("/codes"))
	unitprices.NewHandler(unitprices.NewRepo(dep.Pool), log.Named("unitprices")).Register(api.Group("/unit-prices"))
}

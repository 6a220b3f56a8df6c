package main

import (
	"courtbook/internal/facilities/handler"
	"courtbook/internal/facilities/repository"
	"courtbook/internal/facilities/service"
	"courtbook/internal/facilities/validator"
	"courtbook/pkg/app"
	"courtbook/pkg/config"
)

const ServiceName = "facilities"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Facilities service")
	facilityService := initServices(cfg)
	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, handler.NewFacilityHandler(facilityService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.FacilityService {
	facilityService := service.NewFacilityService(
		repository.NewMongoFacilityRepository(cfg),
		validator.NewFacilityValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Facility service initialized", "database", cfg.MongoDatabaseName)
	return facilityService
}

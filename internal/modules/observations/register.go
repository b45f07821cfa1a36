package observations

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/Fellisss/Weather1/internal/modules/observations/controller"
	"github.com/Fellisss/Weather1/internal/modules/observations/repository"
	"github.com/Fellisss/Weather1/internal/modules/observations/service"
)

func RegisterFeature(mux *http.ServeMux, db *gorm.DB, opts service.Options) {
	observationRepository := repository.NewRepository(db)
	observationService := service.NewService(observationRepository, opts)
	observationController := controller.NewObservationController(observationService, opts.Logger)
	observationController.RegisterRoutes(mux)
}

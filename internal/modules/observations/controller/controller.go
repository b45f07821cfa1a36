package controller

import (
	"log/slog"
	"net/http"

	"github.com/Fellisss/Weather1/internal/modules/observations/service"
)

const indexPath = "/Observations/Index"

type ObservationController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type observationControllerImpl struct {
	service service.ObservationService
	logger  *slog.Logger
}

func NewObservationController(svc service.ObservationService, logger *slog.Logger) ObservationController {
	if logger == nil {
		logger = slog.Default()
	}
	return &observationControllerImpl{service: svc, logger: logger}
}

func (c *observationControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleRoot)
	mux.HandleFunc("GET /Observations", c.handleIndex)
	mux.HandleFunc("GET /Observations/Index", c.handleIndex)
	mux.HandleFunc("GET /Observations/TodayByCity", c.handleTodayByCity)
	mux.HandleFunc("GET /Observations/Archive", c.handleArchive)
	mux.HandleFunc("GET /Observations/Create", c.handleCreateForm)
	mux.HandleFunc("POST /Observations/Create", c.handleCreate)
	mux.HandleFunc("GET /Observations/Edit/{id}", c.handleEditForm)
	mux.HandleFunc("POST /Observations/Edit/{id}", c.handleEdit)
	mux.HandleFunc("GET /Observations/Delete/{id}", c.handleDeleteForm)
	mux.HandleFunc("POST /Observations/Delete/{id}", c.handleDelete)
	mux.HandleFunc("GET /Observations/TemperatureData", c.handleTemperatureData)
	mux.HandleFunc("GET /Observations/HumidityData", c.handleHumidityData)
}

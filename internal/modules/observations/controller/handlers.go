package controller

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Fellisss/Weather1/internal/modules/observations/service"
	"github.com/Fellisss/Weather1/internal/modules/observations/types"
	"github.com/Fellisss/Weather1/internal/modules/observations/views"
	"github.com/Fellisss/Weather1/internal/telemetry"
	"github.com/Fellisss/Weather1/internal/utils"
)

func (c *observationControllerImpl) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, indexPath, http.StatusFound)
}

func (c *observationControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := c.service.IndexSnapshot(ctx)
	if err != nil {
		c.serverError(w, r, "failed to load observations", err)
		return
	}

	city := strings.TrimSpace(r.URL.Query().Get("city"))
	card := views.TodayData{City: city}
	if city != "" {
		card.Observation, err = c.service.TodayForCity(ctx, city)
		if err != nil {
			c.serverError(w, r, "failed to load observation", err)
			return
		}
	}

	data := &views.IndexData{
		Flash:  views.Flash(r.URL.Query().Get("status")),
		Cities: snap.Cities,
		Latest: snap.Latest,
		Today:  snap.Today,
		Card:   card,
	}
	var buf bytes.Buffer
	if err := views.RenderIndex(&buf, data); err != nil {
		c.serverError(w, r, "failed to render page", err)
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *observationControllerImpl) handleTodayByCity(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	o, err := c.service.TodayForCity(r.Context(), city)
	if err != nil {
		c.serverError(w, r, "failed to load observation", err)
		return
	}
	var buf bytes.Buffer
	if err := views.RenderTodayPartial(&buf, &views.TodayData{City: city, Observation: o}); err != nil {
		c.serverError(w, r, "failed to render", err)
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *observationControllerImpl) handleArchive(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateBounds(r, "startDate", "endDate", c.service.Location())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	city := strings.TrimSpace(q.Get("city"))

	rows, err := c.service.Archive(r.Context(), city, start, end)
	if err != nil {
		c.serverError(w, r, "failed to load observations", err)
		return
	}

	data := &views.ArchiveData{
		Cities:       c.service.Cities(),
		City:         city,
		StartDate:    q.Get("startDate"),
		EndDate:      q.Get("endDate"),
		Observations: rows,
	}
	var buf bytes.Buffer
	if err := views.RenderArchive(&buf, data); err != nil {
		c.serverError(w, r, "failed to render page", err)
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *observationControllerImpl) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	c.renderForm(w, r, http.StatusOK, views.RenderCreate, c.service.NewDraft(), nil)
}

func (c *observationControllerImpl) handleCreate(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDraft(r)
	if err != nil && !errors.Is(err, errInvalidID) {
		utils.WriteError(w, http.StatusBadRequest, "invalid form")
		return
	}
	d.ID = 0

	out, err := c.service.Create(r.Context(), d)
	if err != nil {
		c.serverError(w, r, "failed to save observation", err)
		return
	}
	if !out.OK() {
		c.renderForm(w, r, http.StatusUnprocessableEntity, views.RenderCreate, out.Draft, out.Errors)
		return
	}
	c.logger.InfoContext(r.Context(), "observation created", "id", out.Observation.ID, "city", out.Observation.City)
	http.Redirect(w, r, indexURL(types.ActionCreated), http.StatusSeeOther)
}

func (c *observationControllerImpl) handleEditForm(w http.ResponseWriter, r *http.Request) {
	o, ok := c.lookup(w, r)
	if !ok {
		return
	}
	c.renderForm(w, r, http.StatusOK, views.RenderEdit, c.service.DraftFrom(o), nil)
}

func (c *observationControllerImpl) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "observation not found")
		return
	}
	d, err := decodeDraft(r)
	if errors.Is(err, errInvalidID) {
		utils.WriteError(w, http.StatusNotFound, "observation not found")
		return
	}
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid form")
		return
	}
	if _, ok := r.PostForm[service.FieldID]; !ok {
		d.ID = id
	}

	out, err := c.service.Update(r.Context(), id, d)
	if errors.Is(err, service.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, "observation not found")
		return
	}
	if err != nil {
		c.serverError(w, r, "failed to update observation", err)
		return
	}
	if !out.OK() {
		c.renderForm(w, r, http.StatusUnprocessableEntity, views.RenderEdit, out.Draft, out.Errors)
		return
	}
	c.logger.InfoContext(r.Context(), "observation updated", "id", id)
	http.Redirect(w, r, indexURL(types.ActionUpdated), http.StatusSeeOther)
}

func (c *observationControllerImpl) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	o, ok := c.lookup(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := views.RenderDelete(&buf, &views.DeleteData{Observation: o}); err != nil {
		c.serverError(w, r, "failed to render page", err)
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *observationControllerImpl) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "observation not found")
		return
	}
	if err := c.service.Delete(r.Context(), id); err != nil {
		c.serverError(w, r, "failed to delete observation", err)
		return
	}
	c.logger.InfoContext(r.Context(), "observation deleted", "id", id)
	http.Redirect(w, r, indexURL(types.ActionDeleted), http.StatusSeeOther)
}

func (c *observationControllerImpl) handleTemperatureData(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRangeQuery(r, "from", "to", c.service.Location())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	points, err := c.service.TemperatureSeries(r.Context(), r.URL.Query().Get("city"), from, to)
	if err != nil {
		c.serverError(w, r, "failed to load temperature data", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, points)
}

func (c *observationControllerImpl) handleHumidityData(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRangeQuery(r, "from", "to", c.service.Location())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	points, err := c.service.HumiditySeries(r.Context(), r.URL.Query().Get("city"), from, to)
	if err != nil {
		c.serverError(w, r, "failed to load humidity data", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, points)
}

// lookup resolves the {id} path segment, answering 404 itself when there is
// no such observation.
func (c *observationControllerImpl) lookup(w http.ResponseWriter, r *http.Request) (types.Observation, bool) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "observation not found")
		return types.Observation{}, false
	}
	o, err := c.service.Get(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, "observation not found")
		return types.Observation{}, false
	}
	if err != nil {
		c.serverError(w, r, "failed to load observation", err)
		return types.Observation{}, false
	}
	return o, true
}

func (c *observationControllerImpl) renderForm(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	render func(io.Writer, *views.FormData) error,
	d service.Draft,
	errs service.FieldErrors,
) {
	var buf bytes.Buffer
	if err := render(&buf, &views.FormData{Cities: c.service.Cities(), Draft: d, Errors: errs}); err != nil {
		c.serverError(w, r, "failed to render page", err)
		return
	}
	utils.WriteHTML(w, status, buf.Bytes())
}

func (c *observationControllerImpl) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	c.logger.ErrorContext(r.Context(), msg, "route", r.Pattern, "error", err)
	telemetry.CaptureError(r.Context(), err, map[string]string{"route": r.Pattern})
	utils.WriteError(w, http.StatusInternalServerError, msg)
}

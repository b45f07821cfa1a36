package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Fellisss/Weather1/internal/metrics"
	"github.com/Fellisss/Weather1/internal/modules/observations/query"
	"github.com/Fellisss/Weather1/internal/modules/observations/repository"
	"github.com/Fellisss/Weather1/internal/modules/observations/types"
)

// ErrNotFound is returned when the referenced observation does not exist, or
// stopped existing while it was being updated.
var ErrNotFound = repository.ErrNotFound

const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// EventPublisher delivers a JSON-encodable payload under an action name.
type EventPublisher interface {
	Publish(ctx context.Context, action string, payload any) error
}

type OperationRecorder interface {
	RecordOperation(operation, outcome string)
}

type ObservationService interface {
	TodayForCity(ctx context.Context, city string) (*types.Observation, error)
	IndexSnapshot(ctx context.Context) (Snapshot, error)
	Archive(ctx context.Context, city string, start, end *time.Time) ([]types.Observation, error)
	Create(ctx context.Context, d Draft) (Outcome, error)
	Get(ctx context.Context, id int64) (types.Observation, error)
	Update(ctx context.Context, id int64, d Draft) (Outcome, error)
	Delete(ctx context.Context, id int64) error
	TemperatureSeries(ctx context.Context, city string, from, to *time.Time) ([]types.TemperaturePoint, error)
	HumiditySeries(ctx context.Context, city string, from, to *time.Time) ([]types.HumidityPoint, error)
	NewDraft() Draft
	DraftFrom(o types.Observation) Draft
	Cities() []string
	Location() *time.Location
}

// Snapshot is the index page model: today's readings newest first.
type Snapshot struct {
	Today  []types.Observation
	Latest *types.Observation
	Cities []string
}

type Options struct {
	Clock     clockwork.Clock
	Location  *time.Location
	Cities    []string
	Publisher EventPublisher
	Recorder  OperationRecorder
	Logger    *slog.Logger
}

type Service struct {
	repository repository.ObservationRepository
	clock      clockwork.Clock
	loc        *time.Location
	cities     []string
	publisher  EventPublisher
	recorder   OperationRecorder
	logger     *slog.Logger
}

func NewService(repo repository.ObservationRepository, opts Options) *Service {
	s := &Service{
		repository: repo,
		clock:      opts.Clock,
		loc:        opts.Location,
		cities:     append([]string(nil), opts.Cities...),
		publisher:  opts.Publisher,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.publisher == nil {
		s.publisher = noopPublisher{}
	}
	if s.recorder == nil {
		s.recorder = noopRecorder{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock.Now().In(s.loc)
}

// TodayForCity returns the most recent reading for city within today's
// window. A nil result with a nil error means there is nothing to show,
// either because city is empty or because no reading exists.
func (s *Service) TodayForCity(ctx context.Context, city string) (*types.Observation, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, nil
	}
	o, found, err := s.repository.First(ctx, query.Today(s.now(), city))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	o = s.local(o)
	return &o, nil
}

func (s *Service) IndexSnapshot(ctx context.Context) (Snapshot, error) {
	today, err := s.repository.List(ctx, query.Today(s.now(), ""))
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Today: s.localAll(today), Cities: s.Cities()}
	if len(snap.Today) > 0 {
		latest := snap.Today[0]
		snap.Latest = &latest
	}
	return snap, nil
}

func (s *Service) Archive(ctx context.Context, city string, start, end *time.Time) ([]types.Observation, error) {
	rows, err := s.repository.List(ctx, query.Archive(strings.TrimSpace(city), start, end))
	if err != nil {
		return nil, err
	}
	return s.localAll(rows), nil
}

func (s *Service) Create(ctx context.Context, d Draft) (Outcome, error) {
	o, errs := Validate(d, s.loc)
	if len(errs) > 0 {
		s.recorder.RecordOperation(opCreate, metrics.OutcomeInvalid)
		return Outcome{Errors: errs, Draft: d}, nil
	}
	if err := s.repository.Create(ctx, &o); err != nil {
		s.recorder.RecordOperation(opCreate, metrics.OutcomeError)
		return Outcome{}, err
	}
	o = s.local(o)
	s.recorder.RecordOperation(opCreate, metrics.OutcomeOK)
	s.publish(ctx, types.ActionCreated, o)
	return Outcome{Observation: o}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (types.Observation, error) {
	o, err := s.repository.Get(ctx, id)
	if err != nil {
		return types.Observation{}, err
	}
	return s.local(o), nil
}

// Update replaces the observation at id with the draft. A draft carrying a
// different id is rejected as ErrNotFound before anything is validated or
// written.
func (s *Service) Update(ctx context.Context, id int64, d Draft) (Outcome, error) {
	if d.ID != id {
		s.recorder.RecordOperation(opUpdate, metrics.OutcomeNotFound)
		return Outcome{}, ErrNotFound
	}
	o, errs := Validate(d, s.loc)
	if len(errs) > 0 {
		s.recorder.RecordOperation(opUpdate, metrics.OutcomeInvalid)
		return Outcome{Errors: errs, Draft: d}, nil
	}
	o.ID = id
	if err := s.repository.Update(ctx, o); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.recorder.RecordOperation(opUpdate, metrics.OutcomeNotFound)
			return Outcome{}, ErrNotFound
		}
		s.recorder.RecordOperation(opUpdate, metrics.OutcomeError)
		return Outcome{}, err
	}
	o = s.local(o)
	s.recorder.RecordOperation(opUpdate, metrics.OutcomeOK)
	s.publish(ctx, types.ActionUpdated, o)
	return Outcome{Observation: o}, nil
}

// Delete removes the observation. Deleting an id that does not exist is not
// an error.
func (s *Service) Delete(ctx context.Context, id int64) error {
	o, err := s.repository.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.recorder.RecordOperation(opDelete, metrics.OutcomeNoop)
		return nil
	}
	if err != nil {
		s.recorder.RecordOperation(opDelete, metrics.OutcomeError)
		return err
	}
	existed, err := s.repository.Delete(ctx, id)
	if err != nil {
		s.recorder.RecordOperation(opDelete, metrics.OutcomeError)
		return err
	}
	if !existed {
		s.recorder.RecordOperation(opDelete, metrics.OutcomeNoop)
		return nil
	}
	s.recorder.RecordOperation(opDelete, metrics.OutcomeOK)
	s.publish(ctx, types.ActionDeleted, s.local(o))
	return nil
}

func (s *Service) TemperatureSeries(ctx context.Context, city string, from, to *time.Time) ([]types.TemperaturePoint, error) {
	rows, err := s.repository.List(ctx, query.Series(strings.TrimSpace(city), from, to))
	if err != nil {
		return nil, err
	}
	out := make([]types.TemperaturePoint, 0, len(rows))
	for _, o := range rows {
		out = append(out, types.TemperaturePoint{
			Timestamp:   s.seriesLabel(o.Timestamp),
			Temperature: o.Temperature,
		})
	}
	return out, nil
}

func (s *Service) HumiditySeries(ctx context.Context, city string, from, to *time.Time) ([]types.HumidityPoint, error) {
	rows, err := s.repository.List(ctx, query.Series(strings.TrimSpace(city), from, to))
	if err != nil {
		return nil, err
	}
	out := make([]types.HumidityPoint, 0, len(rows))
	for _, o := range rows {
		out = append(out, types.HumidityPoint{
			Timestamp: s.seriesLabel(o.Timestamp),
			Humidity:  o.Humidity,
		})
	}
	return out, nil
}

// NewDraft is a blank create form with the timestamp set to now.
func (s *Service) NewDraft() Draft {
	return Draft{Timestamp: s.now().Format(DraftTimeLayout)}
}

func (s *Service) DraftFrom(o types.Observation) Draft {
	return DraftFrom(o, s.loc)
}

func (s *Service) Cities() []string {
	return append([]string(nil), s.cities...)
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) seriesLabel(t time.Time) string {
	return t.In(s.loc).Format(types.SeriesTimeLayout)
}

func (s *Service) local(o types.Observation) types.Observation {
	o.Timestamp = query.Normalize(o.Timestamp).In(s.loc)
	return o
}

func (s *Service) localAll(rows []types.Observation) []types.Observation {
	for i := range rows {
		rows[i] = s.local(rows[i])
	}
	return rows
}

func (s *Service) publish(ctx context.Context, action string, o types.Observation) {
	ev := types.Event{Action: action, Observation: o, At: s.clock.Now().UTC()}
	if err := s.publisher.Publish(ctx, action, ev); err != nil {
		s.logger.WarnContext(ctx, "publish observation event failed",
			"action", action,
			"observation_id", o.ID,
			"error", err,
		)
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }

type noopRecorder struct{}

func (noopRecorder) RecordOperation(string, string) {}

var _ ObservationService = (*Service)(nil)

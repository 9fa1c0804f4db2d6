package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lomoval/calendar-helper/internal/llm"
	"github.com/lomoval/calendar-helper/internal/metrics"
	"github.com/lomoval/calendar-helper/internal/prompts"
	"github.com/lomoval/calendar-helper/internal/storage"
	log "github.com/sirupsen/logrus"
)

const (
	entryExtract = "extract"
	entryCorrect = "correct"
)

// FailurePolicy decides what an address lookup failure does to the batch.
type FailurePolicy string

const (
	AbortBatch FailurePolicy = "abort"
	SkipEvent  FailurePolicy = "skip"
)

// Clients are the completion clients of the three prompt programs; they may be the same client.
type Clients struct {
	Safety  llm.Client
	Events  llm.Client
	Address llm.Client
}

type Config struct {
	Templates prompts.Templates
	// Deadline bounds a whole Extract or Correct call; zero means no deadline.
	Deadline             time.Duration
	DefaultTimezone      string
	AddressFailurePolicy FailurePolicy
	Metrics              *metrics.Metrics
	Clock                func() time.Time
}

type ExtractRequest struct {
	Images       []Image
	Text         string
	Timezone     string
	LocationHint *storage.LocationHint
}

type CorrectRequest struct {
	Text     string
	Events   []storage.Event
	Timezone string
}

type Pipeline struct {
	safety      *SafetyValidator
	extractor   *EventExtractor
	corrector   *CorrectionApplier
	normalizer  DateNormalizer
	enricher    *AddressEnricher
	deadline    time.Duration
	defaultZone *time.Location
	policy      FailurePolicy
	metrics     *metrics.Metrics
	now         func() time.Time
}

func New(clients Clients, config Config) *Pipeline {
	templates := config.Templates
	if templates.Extraction == "" {
		templates = prompts.Default()
	}
	policy := config.AddressFailurePolicy
	if policy != SkipEvent {
		policy = AbortBatch
	}
	now := config.Clock
	if now == nil {
		now = time.Now
	}
	defaultZone := time.UTC
	if config.DefaultTimezone != "" {
		if loc, err := time.LoadLocation(config.DefaultTimezone); err == nil {
			defaultZone = loc
		} else {
			log.WithError(err).Warnf("unknown default timezone %q, using UTC", config.DefaultTimezone)
		}
	}

	m := config.Metrics
	return &Pipeline{
		safety:      NewSafetyValidator(llm.Instrument(clients.Safety, "safety", m), templates),
		extractor:   NewEventExtractor(llm.Instrument(clients.Events, "events", m), templates),
		corrector:   NewCorrectionApplier(llm.Instrument(clients.Events, "events", m), templates),
		enricher:    NewAddressEnricher(llm.Instrument(clients.Address, "address", m), templates),
		deadline:    config.Deadline,
		defaultZone: defaultZone,
		policy:      policy,
		metrics:     m,
		now:         now,
	}
}

func (p *Pipeline) Extract(ctx context.Context, req ExtractRequest) (events []storage.Event, err error) {
	defer func() { p.observe(entryExtract, events, err) }()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		if len(req.Images) == 0 {
			return nil, atStage(newError(KindNoEventsFound, errors.New("neither text nor images provided")), StageExtract, -1)
		}
		text = DefaultImageInstruction
	}

	ctx, cancel := p.withDeadline(ctx)
	defer cancel()
	loc := p.location(req.Timezone)

	if err := p.checkSafety(ctx, text); err != nil {
		return nil, err
	}
	raw, err := p.extractor.Extract(ctx, ExtractInput{
		Images: req.Images,
		Text:   text,
		Now:    p.now().In(loc),
		Hint:   req.LocationHint,
	})
	if err != nil {
		return nil, atStage(err, StageExtract, -1)
	}
	return p.finish(ctx, raw, loc)
}

func (p *Pipeline) Correct(ctx context.Context, req CorrectRequest) (events []storage.Event, err error) {
	defer func() { p.observe(entryCorrect, events, err) }()

	if len(req.Events) == 0 {
		return nil, atStage(newError(KindNoEventsFound, errors.New("there are no events to correct")), StageCorrect, -1)
	}

	ctx, cancel := p.withDeadline(ctx)
	defer cancel()
	loc := p.location(req.Timezone)

	if err := p.checkSafety(ctx, req.Text); err != nil {
		return nil, err
	}
	raw, err := p.corrector.Apply(ctx, CorrectionInput{
		Instruction: req.Text,
		Events:      req.Events,
		Now:         p.now().In(loc),
	})
	if err != nil {
		return nil, atStage(err, StageCorrect, -1)
	}
	return p.finish(ctx, raw, loc)
}

func (p *Pipeline) checkSafety(ctx context.Context, text string) error {
	safe, reason := p.safety.Validate(ctx, text)
	if safe {
		return nil
	}
	return &Error{Kind: KindSafetyRejected, Stage: StageSafety, Reason: reason, Index: -1}
}

// finish normalizes then enriches every event in order; the first failure discards the batch.
func (p *Pipeline) finish(ctx context.Context, raw []RawEvent, loc *time.Location) ([]storage.Event, error) {
	if len(raw) == 0 {
		return nil, atStage(newError(KindNoEventsFound, errors.New("no events")), StageNormalize, -1)
	}

	events := make([]storage.Event, 0, len(raw))
	for i, r := range raw {
		event, err := p.normalizer.Normalize(r, loc)
		if err != nil {
			return nil, atStage(err, StageNormalize, i)
		}
		events = append(events, event)
	}

	for i := range events {
		err := p.enricher.Enrich(ctx, &events[i])
		if err == nil {
			continue
		}
		if p.policy == SkipEvent && ctx.Err() == nil {
			log.WithError(err).WithField("index", i).Warn("address lookup failed, event left unenriched")
			continue
		}
		return nil, atStage(err, StageEnrich, i)
	}
	return events, nil
}

func (p *Pipeline) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.deadline > 0 {
		return context.WithTimeout(ctx, p.deadline)
	}
	return context.WithCancel(ctx)
}

func (p *Pipeline) location(timezone string) *time.Location {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		return p.defaultZone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.WithError(err).Warnf("unknown timezone %q, using %s", timezone, p.defaultZone)
		return p.defaultZone
	}
	return loc
}

func (p *Pipeline) observe(entry string, events []storage.Event, err error) {
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
		fields := log.Fields{"entry": entry, "kind": result}
		var e *Error
		if errors.As(err, &e) {
			fields["stage"] = e.Stage
		}
		log.WithFields(fields).WithError(err).Warn("pipeline failed")
	} else {
		log.WithField("entry", entry).Infof("pipeline produced %d events", len(events))
	}
	p.metrics.ObservePipeline(entry, result, len(events))
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/crowdin-gamification/internal/adapter/otel"
	"github.com/Strob0t/crowdin-gamification/internal/domain"
	"github.com/Strob0t/crowdin-gamification/internal/domain/event"
	"github.com/Strob0t/crowdin-gamification/internal/domain/rule"
	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
	"github.com/Strob0t/crowdin-gamification/internal/logger"
	"github.com/Strob0t/crowdin-gamification/internal/payload"
	"github.com/Strob0t/crowdin-gamification/internal/port/broadcast"
	"github.com/Strob0t/crowdin-gamification/internal/port/crowdin"
	"github.com/Strob0t/crowdin-gamification/internal/port/database"
	"github.com/Strob0t/crowdin-gamification/internal/port/identity"
	"github.com/Strob0t/crowdin-gamification/internal/port/rules"
	"github.com/Strob0t/crowdin-gamification/internal/trigger"
)

// Skip reasons, reported in logs and the sub-event metric.
const (
	outcomeProcessed       = "processed"
	outcomeUnknownTrigger  = "unknown_trigger"
	outcomeNoProject       = "no_project"
	outcomeNoWebhook       = "no_webhook"
	outcomeStoreError      = "store_error"
	outcomeSecretMismatch  = "secret_mismatch"
	outcomeNoEvents        = "no_events"
	outcomePanic           = "panic"
	broadcastResultOK      = "ok"
	broadcastResultFailure = "error"
)

// Submitter runs tasks asynchronously.
type Submitter interface {
	Submit(task func()) error
}

// DispatcherDeps groups the collaborators of a Dispatcher.
type DispatcherDeps struct {
	Registry    *trigger.Registry
	Hooks       database.WebhookStore
	Rules       rules.Service
	Mapper      identity.Mapper
	Identities  identity.Manager
	Broadcaster broadcast.Broadcaster
	Crowdin     crowdin.Client
	Pool        Submitter
	TaskTimeout time.Duration
}

// Dispatcher turns Crowdin webhook deliveries into gamification actions.
type Dispatcher struct {
	deps    DispatcherDeps
	metrics *cfotel.Metrics
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	return &Dispatcher{deps: deps}
}

// SetMetrics enables metric recording.
func (d *Dispatcher) SetMetrics(m *cfotel.Metrics) {
	d.metrics = m
}

// EnqueueTrigger decodes body and queues its sub-events for processing.
// A body that is not a JSON object with an "events" array is rejected with
// domain.ErrValidation; everything after decoding happens on the pool.
func (d *Dispatcher) EnqueueTrigger(ctx context.Context, authorization string, body []byte) (string, error) {
	p, err := payload.Decode(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	subEvents, ok := payload.Objects(p, "events")
	if !ok {
		return "", fmt.Errorf("%w: payload has no events array", domain.ErrValidation)
	}

	deliveryID := uuid.NewString()
	taskCtx := logger.WithDeliveryID(context.WithoutCancel(ctx), deliveryID)
	token := StripBearer(authorization)

	if err := d.deps.Pool.Submit(func() {
		d.HandleTrigger(taskCtx, token, subEvents)
	}); err != nil {
		return "", fmt.Errorf("queue delivery: %w", err)
	}

	if d.metrics != nil {
		d.metrics.Deliveries.Add(ctx, 1)
	}
	slog.InfoContext(taskCtx, "crowdin delivery queued", "subevents", len(subEvents))
	return deliveryID, nil
}

// HandleTrigger processes the sub-events of one delivery in payload order.
// A failing sub-event is logged and skipped; nothing is returned.
func (d *Dispatcher) HandleTrigger(ctx context.Context, token string, subEvents []payload.Object) {
	if d.deps.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.deps.TaskTimeout)
		defer cancel()
	}
	ctx, span := cfotel.StartDeliverySpan(ctx, logger.DeliveryID(ctx), len(subEvents))
	defer span.End()
	start := time.Now()

	for _, sub := range subEvents {
		outcome := d.handleSubEvent(ctx, token, sub)
		if d.metrics != nil {
			d.metrics.SubEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		}
	}

	if d.metrics != nil {
		d.metrics.DispatchDuration.Record(ctx, time.Since(start).Seconds())
	}
}

func (d *Dispatcher) handleSubEvent(ctx context.Context, token string, sub payload.Object) (outcome string) {
	triggerName := payload.String(sub, "event")
	ctx, span := cfotel.StartSubEventSpan(ctx, triggerName)
	defer span.End()

	log := slog.With("trigger", triggerName)
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "crowdin sub-event panicked", "panic", r)
			outcome = outcomePanic
		}
	}()

	plugin, ok := d.deps.Registry.Resolve(triggerName)
	if !ok {
		log.WarnContext(ctx, "no trigger plugin for crowdin event")
		return outcomeUnknownTrigger
	}

	projectID, ok := plugin.ProjectID(sub)
	if !ok || projectID == "" {
		log.ErrorContext(ctx, "project id is not found in the payload")
		return outcomeNoProject
	}
	log = log.With("project_id", projectID)

	hook, outcome := d.loadWebhook(ctx, log, projectID)
	if hook == nil {
		return outcome
	}

	if !VerifyWebhookSecret(token, hook.Secret) {
		log.ErrorContext(ctx, "verifying crowdin webhook secret failed")
		return outcomeSecretMismatch
	}

	var lookup []webhook.RemoteTranslation
	if plugin.RequiresBatchLookup() {
		lookup = d.lookupTranslations(ctx, log, plugin, sub, hook)
	}

	events := plugin.Events(triggerName, sub, lookup)
	if len(events) == 0 {
		return outcomeNoEvents
	}
	if d.metrics != nil {
		d.metrics.EventsProduced.Add(ctx, int64(len(events)), metric.WithAttributes(attribute.String("trigger", triggerName)))
	}

	for _, ev := range events {
		d.processEvent(ctx, ev)
	}
	return outcomeProcessed
}

func (d *Dispatcher) loadWebhook(ctx context.Context, log *slog.Logger, projectID string) (*webhook.WebHook, string) {
	id, err := strconv.ParseInt(projectID, 10, 64)
	if err != nil {
		log.ErrorContext(ctx, "project id is not numeric")
		return nil, outcomeNoProject
	}
	hook, err := d.deps.Hooks.GetWebhookByProjectID(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		log.ErrorContext(ctx, "crowdin hook for project wasn't found")
		return nil, outcomeNoWebhook
	case err != nil:
		log.ErrorContext(ctx, "load crowdin hook", "error", err)
		return nil, outcomeStoreError
	}
	return hook, ""
}

// lookupTranslations lists the translations of the sub-event's source string.
// On failure the plugin runs without them.
func (d *Dispatcher) lookupTranslations(ctx context.Context, log *slog.Logger, plugin trigger.Plugin, sub payload.Object, hook *webhook.WebHook) []webhook.RemoteTranslation {
	key := plugin.PayloadObjectKey()
	stringID, ok := payload.Int64(sub, key, "string", "id")
	if !ok {
		log.WarnContext(ctx, "no string id for translation lookup")
		return nil
	}
	languageID := payload.String(sub, key, "targetLanguage", "id")

	translations, err := d.deps.Crowdin.ListStringTranslations(ctx, crowdin.TranslationsRequest{
		ProjectID:  hook.ProjectID,
		StringID:   stringID,
		LanguageID: languageID,
	}, hook.Token)
	if err != nil {
		log.ErrorContext(ctx, "list string translations", "string_id", stringID, "error", err)
		return nil
	}
	log.DebugContext(ctx, "remote translations loaded", "count", len(translations))
	return translations
}

func (d *Dispatcher) processEvent(ctx context.Context, ev event.Event) {
	log := slog.With("event", ev.Name, "project_id", ev.ProjectID)

	enabled, err := d.deps.Rules.IsTriggerEnabledForAccount(ctx, ev.Name, ev.ProjectID)
	if err != nil {
		log.ErrorContext(ctx, "check rule enabled", "error", err)
		return
	}
	if !enabled {
		log.DebugContext(ctx, "no enabled rule for event")
		return
	}

	receiverID, err := d.associatedUsername(ctx, ev.Receiver)
	if err != nil {
		log.ErrorContext(ctx, "map receiver", "error", err)
		return
	}
	senderID := receiverID
	if ev.Sender != "" && ev.Sender != ev.Receiver {
		if senderID, err = d.associatedUsername(ctx, ev.Sender); err != nil {
			log.ErrorContext(ctx, "map sender", "error", err)
			return
		}
	}
	if strings.TrimSpace(senderID) == "" {
		log.InfoContext(ctx, "crowdin user is not connected, event dropped")
		return
	}

	if _, err := d.deps.Identities.GetOrCreateUserIdentity(ctx, senderID); err != nil {
		log.ErrorContext(ctx, "get or create user identity", "user", senderID, "error", err)
		return
	}

	d.broadcast(ctx, log, ev, senderID, receiverID)
}

func (d *Dispatcher) associatedUsername(ctx context.Context, remote string) (string, error) {
	if remote == "" {
		return "", nil
	}
	return d.deps.Mapper.AssociatedUsername(ctx, webhook.ConnectorName, remote)
}

// broadcast emits a generic action when a rule of the event's project is
// titled after the event. Cancellations, and events only known as
// cancellers, emit one cancel action per rule of the project listing the
// event among its cancellers.
func (d *Dispatcher) broadcast(ctx context.Context, log *slog.Logger, ev event.Event, senderID, receiverID string) {
	attrs := event.Attributes{
		SenderID:     senderID,
		ReceiverID:   receiverID,
		ObjectID:     ev.ObjectID,
		ObjectType:   ev.ObjectType,
		EventDetails: eventDetails(ev.ProjectID),
	}

	if !ev.Cancelling {
		titled, err := d.deps.Rules.GetRulesByTitle(ctx, ev.Name)
		if err != nil {
			log.ErrorContext(ctx, "load rules by title", "error", err)
			return
		}
		if len(applicableRules(titled, ev)) > 0 {
			attrs.RuleTitle = ev.Name
			d.send(ctx, log, event.Action{Kind: event.ActionGeneric, Attributes: attrs})
			return
		}
	}

	cancellers, err := d.deps.Rules.GetEnabledRulesMatchingCancellerEvent(ctx, ev.Name)
	if err != nil {
		log.ErrorContext(ctx, "load canceller rules", "error", err)
		return
	}
	for _, r := range applicableRules(cancellers, ev) {
		a := attrs
		a.RuleTitle = r.Title
		d.send(ctx, log, event.Action{Kind: event.ActionCancel, Attributes: a})
	}
}

func (d *Dispatcher) send(ctx context.Context, log *slog.Logger, action event.Action) {
	result := broadcastResultOK
	if err := d.deps.Broadcaster.Broadcast(ctx, action); err != nil {
		result = broadcastResultFailure
		log.ErrorContext(ctx, "cannot broadcast crowdin event", "kind", action.Kind, "rule", action.Attributes.RuleTitle, "error", err)
	} else {
		log.InfoContext(ctx, "crowdin action broadcast", "kind", action.Kind, "rule", action.Attributes.RuleTitle, "sender", action.Attributes.SenderID)
	}
	if d.metrics != nil {
		d.metrics.Broadcasts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(action.Kind)),
			attribute.String("result", result),
		))
	}
}

// applicableRules keeps the rules bound to the event's project or to every project.
func applicableRules(candidates []rule.Rule, ev event.Event) []rule.Rule {
	var out []rule.Rule
	for _, r := range candidates {
		if r.Matches(ev.Name, ev.ProjectID) {
			out = append(out, r)
		}
	}
	return out
}

func eventDetails(projectID string) string {
	b, _ := json.Marshal(map[string]string{"projectId": projectID})
	return string(b)
}

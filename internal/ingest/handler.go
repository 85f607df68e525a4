package ingest

import (
	"context"
	"errors"

	"github.com/fdk/resource-service/internal/models"
	"github.com/fdk/resource-service/internal/rdf"
	"github.com/fdk/resource-service/internal/services"
	appErr "github.com/fdk/resource-service/pkg/errors"
	"github.com/fdk/resource-service/pkg/logger"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// MessageHandler processes one message of a source. decode fills the event struct from the
// message value.
type MessageHandler interface {
	HandleMessage(ctx context.Context, src Source, decode func(target any) error) error
}

// Handler applies resource events to the resource store.
type Handler struct {
	resources services.ResourceService
	converter rdf.Converter
	validate  *validator.Validate
	log       *zap.Logger
}

var _ MessageHandler = (*Handler)(nil)

func NewHandler(resources services.ResourceService, converter rdf.Converter) *Handler {
	return &Handler{
		resources: resources,
		converter: converter,
		validate:  validator.New(),
		log:       logger.Named("ingest"),
	}
}

func (h *Handler) HandleMessage(ctx context.Context, src Source, decode func(target any) error) error {
	if src.IsRdfParse() {
		var e RdfParseEvent
		if err := decode(&e); err != nil {
			return invalidf("decode %s message: %v", src.Topic, err)
		}
		return h.HandleRdfParse(ctx, &e)
	}

	var e ResourceEvent
	if err := decode(&e); err != nil {
		return invalidf("decode %s message: %v", src.Topic, err)
	}
	return h.HandleResourceEvent(ctx, src.ResourceType, &e)
}

// HandleRdfParse stores the parsed JSON model of a resource. Only events missing their
// identifying fields are skipped; an unknown type or data that is not a JSON object is a
// processing failure and counts against the breaker.
func (h *Handler) HandleRdfParse(ctx context.Context, e *RdfParseEvent) error {
	if err := h.validate.Struct(e); err != nil {
		return invalidf("rdf parse event: %v", err)
	}
	rt, err := models.ParseResourceType(e.ResourceType)
	if err != nil {
		h.log.Warn("rdf parse event with unknown resource type", zap.String("resource_id", e.FdkID), zap.Error(err))
		return appErr.Wrap(err, appErr.CodeInvalid, "unknown resource type").WithMeta("fdkId", e.FdkID)
	}

	ok, err := h.resources.ShouldUpdate(ctx, e.FdkID, e.Timestamp)
	if err != nil {
		return err
	}
	if !ok {
		h.log.Debug("skipping outdated rdf parse event", zap.String("resource_id", e.FdkID), zap.Int64("timestamp", e.Timestamp))
		return nil
	}

	_, err = h.resources.StoreParsed(ctx, e.FdkID, rt, []byte(e.Data), e.Timestamp)
	return err
}

// HandleResourceEvent applies a harvest, reasoning or removal event for a resource of type rt.
// An empty or unparseable graph is a processing failure.
func (h *Handler) HandleResourceEvent(ctx context.Context, rt models.ResourceType, e *ResourceEvent) error {
	if err := h.validate.Struct(e); err != nil {
		return invalidf("resource event: %v", err)
	}
	log := h.log.With(zap.String("resource_id", e.FdkID), zap.String("type", e.Type), zap.String("resource_type", string(rt)))

	action := e.Action()
	switch action {
	case ActionHarvested, ActionReasoned:
		ok, err := h.resources.ShouldUpdate(ctx, e.FdkID, e.Timestamp)
		if err != nil {
			return err
		}
		if !ok {
			log.Debug("skipping outdated resource event", zap.Int64("timestamp", e.Timestamp))
			return nil
		}

		jsonLD, err := h.converter.TurtleToJSONLD(e.Graph)
		if err != nil {
			if errors.Is(err, rdf.ErrEmptyGraph) {
				return appErr.New(appErr.CodeInternal, "graph conversion produced no data").WithMeta("fdkId", e.FdkID)
			}
			return appErr.Wrap(err, appErr.CodeInternal, "convert graph failed").WithMeta("fdkId", e.FdkID)
		}

		if action == ActionHarvested {
			_, err = h.resources.StoreHarvestedGraph(ctx, e.FdkID, rt, jsonLD, e.Timestamp)
		} else {
			_, err = h.resources.StoreReasonedGraph(ctx, e.FdkID, rt, jsonLD, e.Timestamp)
		}
		return err

	case ActionRemoved:
		_, err := h.resources.MarkDeleted(ctx, e.FdkID, rt, e.Timestamp)
		return err

	default:
		log.Warn("unknown event action, skipping")
		return nil
	}
}

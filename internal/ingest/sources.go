// Package ingest consumes resource change events. Each event stream runs behind its own
// circuit breaker, and the Manager turns breaker state into consumer backpressure.
package ingest

import (
	"sort"

	"github.com/fdk/resource-service/internal/models"
)

// Breaker names, one per event stream.
const (
	BreakerRdfParse         = "rdfParseConsumer"
	BreakerConcept          = "conceptConsumer"
	BreakerDataset          = "datasetConsumer"
	BreakerDataService      = "dataServiceConsumer"
	BreakerInformationModel = "informationModelConsumer"
	BreakerService          = "serviceConsumer"
	BreakerEvent            = "eventConsumer"
)

var breakerTypes = map[string]models.ResourceType{
	BreakerRdfParse:         "",
	BreakerConcept:          models.ResourceTypeConcept,
	BreakerDataset:          models.ResourceTypeDataset,
	BreakerDataService:      models.ResourceTypeDataService,
	BreakerInformationModel: models.ResourceTypeInformationModel,
	BreakerService:          models.ResourceTypeService,
	BreakerEvent:            models.ResourceTypeEvent,
}

// BreakerNames lists every breaker in a stable order.
func BreakerNames() []string {
	names := make([]string, 0, len(breakerTypes))
	for name := range breakerTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source is one event stream. ResourceType is empty for the parsed-resource stream, whose
// events carry their own type.
type Source struct {
	Breaker      string
	Topic        string
	ResourceType models.ResourceType
}

// IsRdfParse reports whether the source carries parsed resources instead of graphs.
func (s Source) IsRdfParse() bool { return s.Breaker == BreakerRdfParse }

// Sources builds the sources from a breaker name to topic map. Unknown names and empty
// topics are skipped.
func Sources(topics map[string]string) []Source {
	var out []Source
	for _, name := range BreakerNames() {
		topic := topics[name]
		if topic == "" {
			continue
		}
		out = append(out, Source{Breaker: name, Topic: topic, ResourceType: breakerTypes[name]})
	}
	return out
}

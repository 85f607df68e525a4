package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fdk/resource-service/internal/rdf"
	"github.com/fdk/resource-service/pkg/utils"
)

// Union merges expanded JSON-LD documents into one graph. Node objects with the same @id
// are merged and their values de-duplicated. Blank node labels are scoped per source
// resource, so blank nodes from different resources never collide.
type Union struct {
	nodes map[string]map[string][]any
}

func NewUnion() *Union {
	return &Union{nodes: map[string]map[string][]any{}}
}

// Len returns the number of distinct nodes.
func (u *Union) Len() int { return len(u.nodes) }

// Add merges the JSON-LD of one resource. The document is parsed and relabelled before
// anything is merged, so a failing document leaves the union untouched.
func (u *Union) Add(scope string, doc []byte) error {
	var raw any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return fmt.Errorf("decode json-ld of %s: %w", scope, err)
	}
	objs, err := nodeObjects(raw)
	if err != nil {
		return fmt.Errorf("json-ld of %s: %w", scope, err)
	}

	r := relabeler{prefix: "_:" + utils.ShortHash(scope, 12) + "-"}
	prepared := make([]map[string]any, 0, len(objs))
	for _, obj := range objs {
		prepared = append(prepared, r.node(obj))
	}
	for _, obj := range prepared {
		u.merge(obj)
	}
	return nil
}

func nodeObjects(raw any) ([]map[string]any, error) {
	switch v := raw.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected node object, got %T", item)
			}
			out = append(out, obj)
		}
		return out, nil
	case map[string]any:
		if g, ok := v["@graph"]; ok {
			return nodeObjects(g)
		}
		return []map[string]any{v}, nil
	default:
		return nil, fmt.Errorf("expected array or object, got %T", raw)
	}
}

func (u *Union) merge(obj map[string]any) {
	id, _ := obj["@id"].(string)
	target, ok := u.nodes[id]
	if !ok {
		target = map[string][]any{}
		u.nodes[id] = target
	}
	for key, value := range obj {
		if key == "@id" {
			continue
		}
		target[key] = append(target[key], asList(value)...)
	}
}

func asList(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

// Document renders the union as {"@graph": [...]} with nodes ordered by @id and values
// ordered by their JSON encoding.
func (u *Union) Document() ([]byte, error) {
	ids := make([]string, 0, len(u.nodes))
	for id := range u.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	graph := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		node := map[string]any{"@id": id}
		for key, values := range u.nodes[id] {
			node[key] = rdf.SortValues(values)
		}
		graph = append(graph, node)
	}
	return json.Marshal(map[string]any{"@graph": graph})
}

type relabeler struct {
	prefix  string
	counter int
}

func (r *relabeler) label(id string) string {
	if !strings.HasPrefix(id, "_:") {
		return id
	}
	return r.prefix + strings.TrimPrefix(id, "_:")
}

func (r *relabeler) node(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj)+1)
	for key, value := range obj {
		out[key] = r.value(value)
	}
	if id, ok := obj["@id"].(string); ok {
		out["@id"] = r.label(id)
	} else {
		r.counter++
		out["@id"] = fmt.Sprintf("%sanon%d", r.prefix, r.counter)
	}
	return out
}

func (r *relabeler) value(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = r.value(item)
		}
		return out
	case map[string]any:
		if _, literal := t["@value"]; literal {
			return t
		}
		out := make(map[string]any, len(t))
		for key, inner := range t {
			out[key] = r.value(inner)
		}
		if id, ok := t["@id"].(string); ok {
			out["@id"] = r.label(id)
		}
		return out
	default:
		return v
	}
}

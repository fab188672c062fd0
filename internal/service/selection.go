package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ifuryst/pagemill/internal/models"
	"github.com/ifuryst/pagemill/pkg/util"
)

// Selection is the canonical generation request after alias normalization.
type Selection struct {
	LocationRefs []string `json:"locationRefs"`
	ServiceRefs  []string `json:"serviceRefs"`
	Publish      bool     `json:"publish"`
	MaxPages     int      `json:"maxPages,omitempty"`
}

// Accepted payload keys, mapped to their canonical field.
var selectionAliases = map[string]string{
	"locationRefs":  "locationRefs",
	"locationIds":   "locationRefs",
	"locations":     "locationRefs",
	"zips":          "locationRefs",
	"location_refs": "locationRefs",
	"location_ids":  "locationRefs",

	"serviceRefs":  "serviceRefs",
	"serviceKeys":  "serviceRefs",
	"services":     "serviceRefs",
	"service_refs": "serviceRefs",
	"service_keys": "serviceRefs",

	"maxPages":  "maxPages",
	"max_pages": "maxPages",
	"cap":       "maxPages",
	"limit":     "maxPages",

	"publish":     "publish",
	"publishNow":  "publish",
	"publish_now": "publish",
}

// ParseSelection maps a raw submission body onto Selection. Unknown keys,
// two aliases for the same field and wrongly typed values are rejected.
func ParseSelection(body []byte, maxLimit int) (*Selection, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ValidationError{Reason: "body must be a JSON object"}
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	canonical := make(map[string]json.RawMessage, len(raw))
	source := make(map[string]string, len(raw))
	for _, key := range keys {
		field, ok := selectionAliases[key]
		if !ok {
			return nil, &ValidationError{Field: key, Reason: "unrecognized field"}
		}
		if prev, dup := source[field]; dup {
			return nil, &ValidationError{Field: key, Reason: fmt.Sprintf("conflicts with %q", prev)}
		}
		source[field] = key
		canonical[field] = raw[key]
	}

	sel := &Selection{}
	var err error
	if sel.LocationRefs, err = decodeRefs(canonical["locationRefs"], source["locationRefs"], "locationRefs"); err != nil {
		return nil, err
	}
	if sel.ServiceRefs, err = decodeRefs(canonical["serviceRefs"], source["serviceRefs"], "serviceRefs"); err != nil {
		return nil, err
	}

	if v, ok := canonical["publish"]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &sel.Publish); err != nil {
			return nil, &ValidationError{Field: source["publish"], Reason: "must be a boolean"}
		}
	}

	if v, ok := canonical["maxPages"]; ok && string(v) != "null" {
		field := source["maxPages"]
		var n float64
		if err := json.Unmarshal(v, &n); err != nil {
			return nil, &ValidationError{Field: field, Reason: "must be a number"}
		}
		if n != float64(int(n)) {
			return nil, &ValidationError{Field: field, Reason: "must be a whole number"}
		}
		if n < 1 || int(n) > maxLimit {
			return nil, &ValidationError{Field: field, Reason: fmt.Sprintf("must be between 1 and %d", maxLimit)}
		}
		sel.MaxPages = int(n)
	}

	return sel, nil
}

func decodeRefs(v json.RawMessage, field, canonical string) ([]string, error) {
	if field == "" {
		field = canonical
	}
	if len(v) == 0 || string(v) == "null" {
		return nil, &ValidationError{Field: field, Reason: "at least one ref is required"}
	}

	var values []string
	if err := json.Unmarshal(v, &values); err != nil {
		return nil, &ValidationError{Field: field, Reason: "must be an array of strings"}
	}
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}
	values = util.UniqueStrings(values)
	if len(values) == 0 {
		return nil, &ValidationError{Field: field, Reason: "at least one ref is required"}
	}
	return values, nil
}

// Pair is one (location, service) combination to materialize.
type Pair struct {
	Location models.Location
	Service  models.Service
}

// Plan is the ordered work list of a generation job together with the
// location and service sets it actually touches.
type Plan struct {
	Locations []models.Location
	Services  []models.Service
	Pairs     []Pair
}

// PlanPairs expands locations × services location-major. When maxPages is
// below the full product the list is truncated to its first maxPages pairs
// and both sets shrink to the members those pairs reference.
func PlanPairs(locations []models.Location, services []models.Service, maxPages int) Plan {
	total := len(locations) * len(services)
	if total == 0 {
		return Plan{}
	}
	if maxPages <= 0 || maxPages > total {
		maxPages = total
	}

	// Only the first ceil(maxPages/len(services)) locations contribute, and
	// a single location contributes only the first maxPages services.
	locCount := (maxPages + len(services) - 1) / len(services)
	svcCount := len(services)
	if maxPages < svcCount {
		svcCount = maxPages
	}

	plan := Plan{
		Locations: locations[:locCount],
		Services:  services[:svcCount],
		Pairs:     make([]Pair, 0, maxPages),
	}
	for _, loc := range plan.Locations {
		for _, svc := range plan.Services {
			if len(plan.Pairs) == maxPages {
				return plan
			}
			plan.Pairs = append(plan.Pairs, Pair{Location: loc, Service: svc})
		}
	}
	return plan
}

// Snapshot records the resolved selection on the job for auditing.
func (p Plan) Snapshot(sel *Selection) models.SelectionSnapshot {
	snap := models.SelectionSnapshot{
		LocationIDs: make([]string, 0, len(p.Locations)),
		ServiceKeys: make([]string, 0, len(p.Services)),
		MaxPages:    sel.MaxPages,
		Publish:     sel.Publish,
		Pairs:       len(p.Pairs),
	}
	for _, loc := range p.Locations {
		snap.LocationIDs = append(snap.LocationIDs, loc.ID)
	}
	for _, svc := range p.Services {
		snap.ServiceKeys = append(snap.ServiceKeys, svc.Key)
	}
	return snap
}

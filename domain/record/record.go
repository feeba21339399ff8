package record

import (
	"fmt"
	"sort"
	"strconv"

	"datalens/domain/core"
)

// Domain names a category of data with its own variable set.
type Domain string

const (
	DomainMusic         Domain = "music"
	DomainWeather       Domain = "weather"
	DomainEntertainment Domain = "entertainment"
	DomainGaming        Domain = "gaming"
	DomainRepositories  Domain = "repositories"
	DomainProductivity  Domain = "productivity"
)

// KnownDomains lists the domains the demo dataset ships with. The engine
// itself is domain-agnostic; this is only used for input validation.
var KnownDomains = []Domain{
	DomainMusic,
	DomainWeather,
	DomainEntertainment,
	DomainGaming,
	DomainRepositories,
	DomainProductivity,
}

// IsKnown reports whether d is one of the shipped domains.
func (d Domain) IsKnown() bool {
	for _, k := range KnownDomains {
		if d == k {
			return true
		}
	}
	return false
}

func (d Domain) String() string { return string(d) }

// DomainRecord is one row of a per-domain collection: a key identifying
// the record plus named scalar/categorical fields. Records are immutable
// once produced by a record source.
type DomainRecord struct {
	Domain Domain                 `json:"domain"`
	Key    string                 `json:"key"`
	Fields map[string]interface{} `json:"fields"`
}

// NumericField extracts a field as float64. Strings holding numbers are
// coerced so spreadsheet-sourced records behave like API-sourced ones.
func (r DomainRecord) NumericField(name string) (float64, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// VariableNames returns the record's field names in sorted order.
func (r DomainRecord) VariableNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collection is a named set of records belonging to one domain.
type Collection struct {
	Domain  Domain
	Records []DomainRecord
}

// Series extracts a numeric column keyed by record key. Records missing
// the field or holding non-numeric values are skipped.
func (c Collection) Series(variable core.VariableKey) map[string]float64 {
	out := make(map[string]float64, len(c.Records))
	for _, rec := range c.Records {
		if v, ok := rec.NumericField(variable.String()); ok {
			out[rec.Key] = v
		}
	}
	return out
}

// Validate checks structural invariants of the collection.
func (c Collection) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("collection missing domain name")
	}
	seen := make(map[string]bool, len(c.Records))
	for _, rec := range c.Records {
		if rec.Key == "" {
			return fmt.Errorf("record in domain %s missing key", c.Domain)
		}
		if rec.Domain != c.Domain {
			return fmt.Errorf("record %s belongs to %s, expected %s", rec.Key, rec.Domain, c.Domain)
		}
		if seen[rec.Key] {
			return fmt.Errorf("duplicate record key %s in domain %s", rec.Key, c.Domain)
		}
		seen[rec.Key] = true
	}
	return nil
}

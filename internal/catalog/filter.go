// Package catalog derives the views pages render from fetched service and
// booking lists. Everything here is pure: no I/O, no hidden state, and the
// input slices are never modified.
package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/benvon/homehero/internal/models"
)

// AllCategories is the category sentinel that disables the category predicate.
const AllCategories = "all"

// Criteria is the user's filter input for a service list. A nil bound is unset.
type Criteria struct {
	SearchTerm string
	Category   string
	PriceMin   *float64
	PriceMax   *float64
}

// ParseCriteria builds Criteria from raw form input. A bound that is not a
// finite number is treated as unset; an empty category means AllCategories.
func ParseCriteria(search, category, priceMin, priceMax string) Criteria {
	if category == "" {
		category = AllCategories
	}
	return Criteria{
		SearchTerm: search,
		Category:   category,
		PriceMin:   parseBound(priceMin),
		PriceMax:   parseBound(priceMax),
	}
}

func parseBound(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Empty reports whether c filters nothing out.
func (c Criteria) Empty() bool {
	return c.SearchTerm == "" && c.categoryAll() && c.PriceMin == nil && c.PriceMax == nil
}

func (c Criteria) categoryAll() bool {
	return c.Category == "" || c.Category == AllCategories
}

// Filter returns the records of source matching every criterion, in source
// order. With empty criteria it returns source itself.
func Filter(source []models.Service, c Criteria) []models.Service {
	if c.Empty() {
		return source
	}

	preds := predicates(c)
	out := make([]models.Service, 0, len(source))
	for _, s := range source {
		if matchesAll(s, preds) {
			out = append(out, s)
		}
	}
	return out
}

type predicate func(models.Service) bool

func predicates(c Criteria) []predicate {
	var preds []predicate
	if c.SearchTerm != "" {
		preds = append(preds, searchPredicate(c.SearchTerm))
	}
	if !c.categoryAll() {
		preds = append(preds, categoryPredicate(c.Category))
	}
	if c.PriceMin != nil || c.PriceMax != nil {
		preds = append(preds, pricePredicate(c.PriceMin, c.PriceMax))
	}
	return preds
}

func matchesAll(s models.Service, preds []predicate) bool {
	for _, p := range preds {
		if !p(s) {
			return false
		}
	}
	return true
}

func searchPredicate(term string) predicate {
	term = strings.ToLower(term)
	return func(s models.Service) bool {
		return strings.Contains(strings.ToLower(s.ServiceName), term) ||
			strings.Contains(strings.ToLower(s.Description), term)
	}
}

func categoryPredicate(category string) predicate {
	return func(s models.Service) bool {
		return s.Category == category
	}
}

func pricePredicate(minPtr, maxPtr *float64) predicate {
	lo, hi := 0.0, math.Inf(1)
	if minPtr != nil {
		lo = *minPtr
	}
	if maxPtr != nil {
		hi = *maxPtr
	}
	return func(s models.Service) bool {
		return s.Price >= lo && s.Price <= hi
	}
}

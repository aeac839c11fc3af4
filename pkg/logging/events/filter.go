// Package events names the trace events emitted by the storefront.
package events

import "github.com/vanderheijden86/kanvas/pkg/logging"

type FilterTracer struct{}

var Filter = FilterTracer{}

func (FilterTracer) Toggle(id int, selected bool, selection []int) {
	logging.Trace("filter.toggle", map[string]any{"id": id, "selected": selected, "selection": selection})
}

func (FilterTracer) Reset(reason string) {
	logging.Trace("filter.reset", map[string]any{"reason": reason})
}

func (FilterTracer) Expand(id int, open bool) {
	logging.Trace("filter.expand", map[string]any{"id": id, "open": open})
}

type ListingTracer struct{}

var Listing = ListingTracer{}

func (ListingTracer) Fetch(generation uint64, categories []int, page int) {
	logging.Trace("listing.fetch", map[string]any{"generation": generation, "categories": categories, "page": page})
}

func (ListingTracer) Stale(generation, current uint64) {
	logging.Trace("listing.stale", map[string]any{"generation": generation, "current": current})
}

func (ListingTracer) Loaded(generation uint64, total int) {
	logging.Trace("listing.loaded", map[string]any{"generation": generation, "total": total})
}

type CatalogTracer struct{}

var Catalog = CatalogTracer{}

func (CatalogTracer) Reload(categories int, changed bool) {
	logging.Trace("catalog.reload", map[string]any{"categories": categories, "changed": changed})
}

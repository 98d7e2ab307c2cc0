// Package filter prunes version/language-tagged array elements from decoded
// JSON documents.
package filter

import (
	"time"
)

// Directive selects which array elements survive filtering. The zero value
// applies no filtering.
type Directive struct {
	Version  string
	Language string
}

// Empty reports whether the directive carries no constraints.
func (d Directive) Empty() bool {
	return d.Version == "" && d.Language == ""
}

// Apply prunes array elements from a decoded JSON document according to the
// directive and returns the result. The input document is never mutated;
// filtered documents are rebuilt at the levels that change.
//
// Only mapping-shaped documents are inspected. A top-level key is filterable
// when its value is an array of mappings where at least one element carries a
// version tag or a language tag. Within a filterable array, an element
// survives when every constrained tag it carries matches the directive;
// elements lacking a constrained tag are retained unconditionally.
func Apply(doc interface{}, directive Directive) interface{} {
	if directive.Empty() {
		GetFilterMetrics().RecordApply(resultPassthrough)
		return doc
	}

	obj, ok := doc.(map[string]interface{})
	if !ok {
		// Top-level arrays and scalars pass through unchanged.
		GetFilterMetrics().RecordApply(resultPassthrough)
		return doc
	}

	start := time.Now()
	result := make(map[string]interface{}, len(obj))
	dropped := 0

	for key, value := range obj {
		arr, isArray := value.([]interface{})
		if !isArray || !isFilterable(arr) {
			result[key] = value
			continue
		}
		filtered, n := filterElements(arr, directive)
		result[key] = filtered
		dropped += n
	}

	metrics := GetFilterMetrics()
	metrics.RecordApply(resultFiltered)
	metrics.RecordDropped(dropped)
	metrics.ObserveDuration(time.Since(start))

	return result
}

// isFilterable reports whether at least one element of the array is a
// mapping carrying a version or language tag.
func isFilterable(arr []interface{}) bool {
	for _, item := range arr {
		elem, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if _, ok := versionTagName(elem); ok {
			return true
		}
		if _, ok := languageTagName(elem); ok {
			return true
		}
	}
	return false
}

// filterElements rebuilds the array keeping only elements that match the
// directive, preserving relative order. Returns the filtered array and the
// number of elements dropped.
func filterElements(arr []interface{}, directive Directive) ([]interface{}, int) {
	result := make([]interface{}, 0, len(arr))

	for _, item := range arr {
		elem, ok := item.(map[string]interface{})
		if !ok {
			// Non-mapping elements carry no tags and are retained.
			result = append(result, item)
			continue
		}
		if matches(elem, directive) {
			result = append(result, item)
		}
	}

	return result, len(arr) - len(result)
}

// matches applies the directive to a single array element. Constraints apply
// only to tags the element actually carries: an element lacking a version tag
// is never dropped by the version constraint, and likewise for language. When
// both constraints are set, both must hold for elements carrying both tags.
func matches(elem map[string]interface{}, directive Directive) bool {
	if directive.Version != "" {
		if name, ok := versionTagName(elem); ok && name != directive.Version {
			return false
		}
	}
	if directive.Language != "" {
		if name, ok := languageTagName(elem); ok && name != directive.Language {
			return false
		}
	}
	return true
}

// versionTagName returns the name of the element's version tag. Entries whose
// version axis is the version group (move learn details) expose it as a
// version_group sub-object, so both keys count as version tags.
func versionTagName(elem map[string]interface{}) (string, bool) {
	if name, ok := tagName(elem, "version"); ok {
		return name, true
	}
	return tagName(elem, "version_group")
}

// languageTagName returns the name of the element's language tag.
func languageTagName(elem map[string]interface{}) (string, bool) {
	return tagName(elem, "language")
}

// tagName extracts the name field from a tag sub-object of the form
// {"name": ..., "url": ...}. Values that are not mappings with a string
// name field do not count as tags.
func tagName(elem map[string]interface{}, key string) (string, bool) {
	tag, ok := elem[key].(map[string]interface{})
	if !ok {
		return "", false
	}
	name, ok := tag["name"].(string)
	return name, ok
}

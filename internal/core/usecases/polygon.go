package usecases

import (
	"errors"
	"regexp"
	"strings"

	"github.com/samirrijal/parkpass/internal/core/domain"
)

// multiPolygonPattern matches the first single-polygon MULTIPOLYGON literal.
var multiPolygonPattern = regexp.MustCompile(`MULTIPOLYGON\(\(\(.*?\)\)\)`)

var (
	polygonSeparator = regexp.MustCompile(`\)\)\s*,\s*\(\(`)
	ringSeparator    = regexp.MustCompile(`\)\s*,\s*\(`)
)

var (
	errNoMultiPolygon = errors.New("no MULTIPOLYGON literal in isochrone")
	errManyPolygons   = errors.New("isochrone holds more than one polygon")
	errHoles          = errors.New("isochrone polygon has inner rings")
)

// ExtractPolygon reduces a MULTIPOLYGON(((...))) literal found in text to
// POLYGON((...)) by dropping one level of nesting. Coordinates are copied
// verbatim. Only a single polygon with a single ring is supported; several
// polygons or inner rings fail with polygon_extraction_failed.
func ExtractPolygon(text string) (string, error) {
	match := multiPolygonPattern.FindString(text)
	if match == "" {
		return "", domain.StageError(domain.ErrCodePolygonExtractionFailed, errNoMultiPolygon)
	}

	body := strings.TrimPrefix(match, "MULTI")
	if polygonSeparator.MatchString(body) {
		return "", domain.StageError(domain.ErrCodePolygonExtractionFailed, errManyPolygons)
	}
	if ringSeparator.MatchString(body) {
		return "", domain.StageError(domain.ErrCodePolygonExtractionFailed, errHoles)
	}

	body = strings.Replace(body, "(((", "((", 1)
	body = strings.Replace(body, ")))", "))", 1)
	return body, nil
}

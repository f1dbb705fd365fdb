package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dxf-normalizer/internal/normalizer/models"
)

// ============================================================
// Path Parser
// ============================================================

var pathCommand = regexp.MustCompile(`([MmLlHhVvZzCcSsQqTtAa])([^MmLlHhVvZzCcSsQqTtAa]*)`)

// ParsePath splits SVG path data into subpaths of points. Only straight
// segments are understood (M, L, H, V, Z and their relative forms); a
// curve command fails the whole path. A closed subpath ends on its first
// point.
func ParsePath(d string) ([][]models.Point, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return nil, fmt.Errorf("empty path")
	}

	var (
		subpaths [][]models.Point
		current  []models.Point
		x, y     float64
	)
	flush := func() {
		if len(current) > 1 {
			subpaths = append(subpaths, current)
		}
		current = nil
	}

	for _, match := range pathCommand.FindAllStringSubmatch(d, -1) {
		cmd := match[1]
		coords := parseCoords(match[2])
		rel := cmd == strings.ToLower(cmd)

		switch strings.ToUpper(cmd) {
		case "M":
			if len(coords) < 2 {
				return nil, fmt.Errorf("%s needs a coordinate pair", cmd)
			}
			flush()
			// Pairs after the first are implicit line-tos.
			for i := 0; i+1 < len(coords); i += 2 {
				if rel {
					x, y = x+coords[i], y+coords[i+1]
				} else {
					x, y = coords[i], coords[i+1]
				}
				current = append(current, models.Point{X: x, Y: y})
			}

		case "L":
			if len(coords) < 2 {
				return nil, fmt.Errorf("%s needs a coordinate pair", cmd)
			}
			for i := 0; i+1 < len(coords); i += 2 {
				if rel {
					x, y = x+coords[i], y+coords[i+1]
				} else {
					x, y = coords[i], coords[i+1]
				}
				current = append(current, models.Point{X: x, Y: y})
			}

		case "H":
			for _, c := range coords {
				if rel {
					x += c
				} else {
					x = c
				}
				current = append(current, models.Point{X: x, Y: y})
			}

		case "V":
			for _, c := range coords {
				if rel {
					y += c
				} else {
					y = c
				}
				current = append(current, models.Point{X: x, Y: y})
			}

		case "Z":
			if len(current) > 0 {
				first := current[0]
				current = append(current, first)
				flush()
				x, y = first.X, first.Y
				current = append(current, first)
			}

		default:
			return nil, fmt.Errorf("unsupported path command %q", cmd)
		}
	}
	flush()

	return subpaths, nil
}

func parseCoords(s string) []float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	// Separator: comma or whitespace
	s = strings.ReplaceAll(s, ",", " ")
	parts := strings.Fields(s)

	var coords []float64
	for _, part := range parts {
		val, err := strconv.ParseFloat(part, 64)
		if err == nil {
			coords = append(coords, val)
		}
	}

	return coords
}

package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ItemAnalysis is the normalized per-item result of the analysis service.
type ItemAnalysis struct {
	Category          string   `json:"category,omitempty"`
	DominantColorName string   `json:"dominant_color_name,omitempty"`
	DominantColors    []string `json:"dominant_colors,omitempty"`
	Style             string   `json:"style,omitempty"`
	Pattern           string   `json:"pattern,omitempty"`
	// Filename is the file name the service reported for this item, if any.
	Filename string `json:"filename,omitempty"`
}

func (a ItemAnalysis) IsEmpty() bool {
	return a.Category == "" && a.DominantColorName == "" && len(a.DominantColors) == 0 &&
		a.Style == "" && a.Pattern == "" && a.Filename == ""
}

type ResponseShape int

const (
	ShapeNone ResponseShape = iota
	ShapeFlatList
	ShapeGroupedMap
)

func (s ResponseShape) String() string {
	switch s {
	case ShapeFlatList:
		return "flat_list"
	case ShapeGroupedMap:
		return "grouped_map"
	default:
		return "none"
	}
}

// ItemGroup is one category bucket of a grouped response.
type ItemGroup struct {
	Key   string
	Items []ItemAnalysis
}

// ClothingItems holds clothing_items in whichever shape the service sent:
// a flat ordered list, or an object of category to list.
type ClothingItems struct {
	Shape  ResponseShape
	Flat   []ItemAnalysis
	Groups []ItemGroup
}

// Flatten returns every item in encounter order.
func (c ClothingItems) Flatten() []ItemAnalysis {
	switch c.Shape {
	case ShapeFlatList:
		return c.Flat
	case ShapeGroupedMap:
		var out []ItemAnalysis
		for _, g := range c.Groups {
			out = append(out, g.Items...)
		}
		return out
	default:
		return nil
	}
}

func (c *ClothingItems) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ClothingItems{Shape: ShapeNone}
		return nil
	}

	switch data[0] {
	case '[':
		var raw []rawItem
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode clothing_items list: %w", err)
		}
		items := make([]ItemAnalysis, 0, len(raw))
		for _, r := range raw {
			items = append(items, r.normalize(""))
		}
		*c = ClothingItems{Shape: ShapeFlatList, Flat: items}
		return nil

	case '{':
		groups, err := decodeGroups(data)
		if err != nil {
			return err
		}
		*c = ClothingItems{Shape: ShapeGroupedMap, Groups: groups}
		return nil

	default:
		return fmt.Errorf("clothing_items must be a list or an object, got %q", string(data[:1]))
	}
}

// decodeGroups walks the object token by token because map decoding loses key order.
func decodeGroups(data []byte) ([]ItemGroup, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode clothing_items object: %w", err)
	}

	var groups []ItemGroup
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode clothing_items key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected clothing_items key %v", tok)
		}

		var raw []rawItem
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode clothing_items[%q]: %w", key, err)
		}
		group := ItemGroup{Key: key, Items: make([]ItemAnalysis, 0, len(raw))}
		for _, r := range raw {
			group.Items = append(group.Items, r.normalize(key))
		}
		groups = append(groups, group)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode clothing_items object end: %w", err)
	}
	return groups, nil
}

type rawItem struct {
	Category          string   `json:"category"`
	DominantColorName string   `json:"dominant_color_name"`
	DominantColors    []swatch `json:"dominant_colors"`
	Style             string   `json:"style"`
	Pattern           string   `json:"pattern"`
	Filename          string   `json:"filename"`
	Name              string   `json:"name"`
}

func (r rawItem) normalize(groupKey string) ItemAnalysis {
	item := ItemAnalysis{
		Category:          strings.TrimSpace(r.Category),
		DominantColorName: strings.TrimSpace(r.DominantColorName),
		Style:             strings.TrimSpace(r.Style),
		Pattern:           strings.TrimSpace(r.Pattern),
		Filename:          strings.TrimSpace(r.Filename),
	}
	if item.Category == "" {
		item.Category = groupKey
	}
	if item.Filename == "" {
		item.Filename = strings.TrimSpace(r.Name)
	}

	for _, s := range r.DominantColors {
		if s.value != "" {
			item.DominantColors = append(item.DominantColors, s.value)
		}
	}
	if item.DominantColorName == "" {
		for _, s := range r.DominantColors {
			if s.rgb != nil {
				item.DominantColorName = NearestColorName(s.rgb[0], s.rgb[1], s.rgb[2])
				break
			}
		}
	}
	return item
}

// swatch accepts either a color name or an [r, g, b] triple.
type swatch struct {
	value string
	rgb   *[3]uint8
}

func (s *swatch) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		s.value = strings.TrimSpace(name)
		return nil

	case '[':
		var channels []float64
		if err := json.Unmarshal(data, &channels); err != nil {
			return fmt.Errorf("decode color triple: %w", err)
		}
		if len(channels) < 3 {
			return fmt.Errorf("color triple needs 3 channels, got %d", len(channels))
		}
		rgb := [3]uint8{channel(channels[0]), channel(channels[1]), channel(channels[2])}
		s.rgb = &rgb
		s.value = fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
		return nil

	default:
		// unknown swatch encodings are dropped
		return nil
	}
}

func channel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

// AnalysisResponse is the body returned by the analysis service.
type AnalysisResponse struct {
	Success       *bool           `json:"success"`
	Error         json.RawMessage `json:"error,omitempty"`
	Message       string          `json:"message,omitempty"`
	ClothingItems ClothingItems   `json:"clothing_items"`
}

// ErrorText returns the service-reported error, if any.
func (r *AnalysisResponse) ErrorText() string {
	raw := bytes.TrimSpace(r.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	return string(raw)
}

// Failed reports an explicit failure. A 2xx body without a success flag counts as success.
func (r *AnalysisResponse) Failed() bool {
	if r.Success != nil && !*r.Success {
		return true
	}
	return r.ErrorText() != ""
}

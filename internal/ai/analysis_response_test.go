package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFlatList(t *testing.T) {
	body := `{"success": true, "clothing_items": [
		{"category": "top", "dominant_color_name": "red", "filename": "shirt.jpg"},
		{"category": "bottom", "dominant_color_name": "black", "style": "Formal", "pattern": "Solid"}
	]}`

	var resp AnalysisResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.False(t, resp.Failed())
	assert.Equal(t, ShapeFlatList, resp.ClothingItems.Shape)

	items := resp.ClothingItems.Flatten()
	require.Len(t, items, 2)
	assert.Equal(t, "top", items[0].Category)
	assert.Equal(t, "shirt.jpg", items[0].Filename)
	assert.Equal(t, "black", items[1].DominantColorName)
	assert.Equal(t, "Formal", items[1].Style)
}

func TestDecodeGroupedMapKeepsKeyOrder(t *testing.T) {
	body := `{"clothing_items": {
		"shirt": [{"filename": "1700_shirt.jpg", "dominant_colors": [[250, 10, 10], [0, 0, 0]], "pattern": "Solid"}],
		"pants": [],
		"shoes": [{"filename": "1700_boots.png"}, {"filename": "1700_sneakers.png", "category": "footwear"}],
		"dress": null
	}}`

	var resp AnalysisResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.False(t, resp.Failed(), "missing success flag on a 2xx body is success")
	assert.Equal(t, ShapeGroupedMap, resp.ClothingItems.Shape)

	groups := resp.ClothingItems.Groups
	require.Len(t, groups, 4)
	assert.Equal(t, []string{"shirt", "pants", "shoes", "dress"},
		[]string{groups[0].Key, groups[1].Key, groups[2].Key, groups[3].Key})

	items := resp.ClothingItems.Flatten()
	require.Len(t, items, 3)
	assert.Equal(t, "shirt", items[0].Category)
	assert.Equal(t, []string{"#fa0a0a", "#000000"}, items[0].DominantColors)
	assert.Equal(t, "red", items[0].DominantColorName)
	assert.Equal(t, "shoes", items[1].Category)
	assert.Equal(t, "footwear", items[2].Category)
	assert.Equal(t, "1700_sneakers.png", items[2].Filename)
}

func TestDecodeAbsentItems(t *testing.T) {
	var resp AnalysisResponse
	require.NoError(t, json.Unmarshal([]byte(`{"success": true}`), &resp))
	assert.Equal(t, ShapeNone, resp.ClothingItems.Shape)
	assert.Empty(t, resp.ClothingItems.Flatten())

	require.NoError(t, json.Unmarshal([]byte(`{"success": true, "clothing_items": null}`), &resp))
	assert.Equal(t, ShapeNone, resp.ClothingItems.Shape)
}

func TestDecodeRejectsScalarItems(t *testing.T) {
	var resp AnalysisResponse
	assert.Error(t, json.Unmarshal([]byte(`{"clothing_items": "nope"}`), &resp))
	assert.Error(t, json.Unmarshal([]byte(`{"clothing_items": {"shirt": {"filename": "x"}}}`), &resp))
}

func TestSwatchVariants(t *testing.T) {
	body := `{"clothing_items": [{"dominant_colors": ["navy", [300, -4, 127.6], [1, 2], {"hex": "#fff"}, null]}]}`

	var resp AnalysisResponse
	err := json.Unmarshal([]byte(body), &resp)
	assert.Error(t, err, "a two channel triple is malformed")

	body = `{"clothing_items": [{"dominant_colors": ["navy", [300, -4, 127.6], {"hex": "#fff"}, null]}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	items := resp.ClothingItems.Flatten()
	require.Len(t, items, 1)
	assert.Equal(t, []string{"navy", "#ff0080"}, items[0].DominantColors)
}

func TestFailedFlags(t *testing.T) {
	cases := []struct {
		body   string
		failed bool
	}{
		{`{"success": true}`, false},
		{`{}`, false},
		{`{"success": false}`, true},
		{`{"error": "model not loaded"}`, true},
		{`{"success": true, "error": null}`, false},
		{`{"error": {"code": 7}}`, true},
	}
	for _, tc := range cases {
		var resp AnalysisResponse
		require.NoError(t, json.Unmarshal([]byte(tc.body), &resp), tc.body)
		assert.Equal(t, tc.failed, resp.Failed(), tc.body)
	}
}

func TestNearestColorName(t *testing.T) {
	assert.Equal(t, "black", NearestColorName(5, 5, 5))
	assert.Equal(t, "white", NearestColorName(250, 250, 250))
	assert.Equal(t, "red", NearestColorName(230, 30, 40))
	assert.Equal(t, "navy", NearestColorName(10, 10, 120))
	assert.Equal(t, "green", NearestColorName(40, 150, 40))
}

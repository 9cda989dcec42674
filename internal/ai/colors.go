package ai

type namedColor struct {
	name    string
	r, g, b int
}

var palette = []namedColor{
	{"black", 0, 0, 0},
	{"white", 255, 255, 255},
	{"gray", 128, 128, 128},
	{"silver", 192, 192, 192},
	{"red", 220, 20, 60},
	{"maroon", 128, 0, 0},
	{"orange", 255, 140, 0},
	{"yellow", 255, 215, 0},
	{"olive", 128, 128, 0},
	{"green", 34, 139, 34},
	{"teal", 0, 128, 128},
	{"blue", 30, 90, 200},
	{"navy", 0, 0, 128},
	{"purple", 128, 0, 128},
	{"pink", 255, 182, 193},
	{"brown", 139, 69, 19},
	{"beige", 245, 245, 220},
	{"khaki", 195, 176, 145},
}

// NearestColorName maps an RGB value to the closest entry of a small clothing palette.
func NearestColorName(r, g, b uint8) string {
	best := palette[0].name
	bestDist := -1
	for _, c := range palette {
		dr := int(r) - c.r
		dg := int(g) - c.g
		db := int(b) - c.b
		// weighted euclidean, green is perceived strongest
		dist := 2*dr*dr + 4*dg*dg + 3*db*db
		if bestDist < 0 || dist < bestDist {
			best = c.name
			bestDist = dist
		}
	}
	return best
}

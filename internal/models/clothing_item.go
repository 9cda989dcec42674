package models

import (
	"strings"
)

type Category string

const (
	CategoryTop       Category = "top"
	CategoryBottom    Category = "bottom"
	CategoryFootwear  Category = "footwear"
	CategoryAccessory Category = "accessory"
	CategoryOuterwear Category = "outerwear"
	CategoryOthers    Category = "others"
)

type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
	SeasonWinter Season = "winter"
	SeasonAll    Season = "all"
)

type Occasion string

const (
	OccasionCasual Occasion = "casual"
	OccasionWork   Occasion = "work"
	OccasionFormal Occasion = "formal"
	OccasionSport  Occasion = "sport"
	OccasionParty  Occasion = "party"
)

// Field defaults applied when neither the request nor the analysis supplies a value.
const (
	DefaultCategory = CategoryOthers
	DefaultColor    = "unknown"
	DefaultSeason   = SeasonAll
	DefaultOccasion = OccasionCasual
	DefaultStyle    = "casual"
	DefaultPattern  = "plain"
)

type ClothingItem struct {
	BaseModel      `bson:",inline"`
	OwnerID        string     `json:"ownerId" bson:"owner_id" gorm:"type:varchar(36);not null;index"`
	Name           string     `json:"name" bson:"name" gorm:"size:255;not null"`
	Category       Category   `json:"category" bson:"category" gorm:"type:varchar(20);not null;default:'others'"`
	Color          string     `json:"color" bson:"color" gorm:"size:100;default:'unknown'"`
	Season         Season     `json:"season" bson:"season" gorm:"type:varchar(20);default:'all'"`
	Occasion       Occasion   `json:"occasion" bson:"occasion" gorm:"type:varchar(20);default:'casual'"`
	Style          string     `json:"style" bson:"style" gorm:"size:100;default:'casual'"`
	Pattern        string     `json:"pattern" bson:"pattern" gorm:"size:100;default:'plain'"`
	DominantColors StringList `json:"dominantColors" bson:"dominant_colors" gorm:"type:text"`
	ImageURL       string     `json:"imageUrl" bson:"image_url" gorm:"size:512;not null"`
}

func (ClothingItem) TableName() string {
	return "clothing_items"
}

var categories = []Category{CategoryTop, CategoryBottom, CategoryFootwear, CategoryAccessory, CategoryOuterwear, CategoryOthers}
var seasons = []Season{SeasonSpring, SeasonSummer, SeasonFall, SeasonWinter, SeasonAll}
var occasions = []Occasion{OccasionCasual, OccasionWork, OccasionFormal, OccasionSport, OccasionParty}

// categoryAliases folds the free-text labels produced by analysis onto the closed set.
var categoryAliases = map[string]Category{
	"top":         CategoryTop,
	"tops":        CategoryTop,
	"shirt":       CategoryTop,
	"t-shirt":     CategoryTop,
	"tshirt":      CategoryTop,
	"blouse":      CategoryTop,
	"sweater":     CategoryTop,
	"hoodie":      CategoryTop,
	"dress":       CategoryTop,
	"bottom":      CategoryBottom,
	"bottoms":     CategoryBottom,
	"pants":       CategoryBottom,
	"trousers":    CategoryBottom,
	"jeans":       CategoryBottom,
	"shorts":      CategoryBottom,
	"skirt":       CategoryBottom,
	"footwear":    CategoryFootwear,
	"shoes":       CategoryFootwear,
	"shoe":        CategoryFootwear,
	"sneakers":    CategoryFootwear,
	"boots":       CategoryFootwear,
	"sandals":     CategoryFootwear,
	"accessory":   CategoryAccessory,
	"accessories": CategoryAccessory,
	"bag":         CategoryAccessory,
	"hat":         CategoryAccessory,
	"belt":        CategoryAccessory,
	"scarf":       CategoryAccessory,
	"outerwear":   CategoryOuterwear,
	"jacket":      CategoryOuterwear,
	"coat":        CategoryOuterwear,
	"blazer":      CategoryOuterwear,
	"others":      CategoryOthers,
	"other":       CategoryOthers,
}

// NormalizeCategory maps a free-text label onto the category enumeration.
// Empty input yields the empty category so callers can tell "absent" from "others".
func NormalizeCategory(raw string) Category {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return ""
	}
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	return CategoryOthers
}

func ParseSeason(raw string) (Season, bool) {
	s := Season(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range seasons {
		if s == known {
			return s, true
		}
	}
	return "", false
}

func ParseOccasion(raw string) (Occasion, bool) {
	o := Occasion(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range occasions {
		if o == known {
			return o, true
		}
	}
	return "", false
}

func (c Category) IsValid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

package service

import "github.com/classpilot/curricula-api/internal/models"

// Placement bands, lowest to highest. Band names double as cohort names: the
// registration flow resolves the band and looks up the cohort with that name.
const (
	BandFoundation = "Foundation"
	BandJunior     = "Junior"
	BandMiddle     = "Middle"
	BandSenior     = "Senior"
)

// entranceScoreFloor is the entrance score below which placement downgrades
// one band from the age-based default.
const entranceScoreFloor = 40

var placementBands = []struct {
	name   string
	minAge int
	maxAge int
}{
	{BandFoundation, 6, 8},
	{BandJunior, 9, 11},
	{BandMiddle, 12, 14},
	{BandSenior, 15, 17},
}

// ResolvePlacementBand maps age and entrance score to a band name. The
// function is pure and total: ages outside 6-17 fall to the lowest band, and a
// score under the floor downgrades exactly one band unless the base band is
// already the lowest.
func ResolvePlacementBand(age, entranceScore int) string {
	idx := 0
	for i, band := range placementBands {
		if age >= band.minAge && age <= band.maxAge {
			idx = i
			break
		}
	}
	if entranceScore < entranceScoreFloor && idx > 0 {
		idx--
	}
	return placementBands[idx].name
}

// DeriveSkillLevel maps a raw assessment score to a skill level band.
func DeriveSkillLevel(score int) models.SkillLevel {
	switch {
	case score >= 75:
		return models.SkillAdvanced
	case score >= 40:
		return models.SkillIntermediate
	default:
		return models.SkillBeginner
	}
}

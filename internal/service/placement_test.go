package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classpilot/curricula-api/internal/models"
)

func TestResolvePlacementBand(t *testing.T) {
	tests := []struct {
		name  string
		age   int
		score int
		want  string
	}{
		{"foundation age", 7, 80, BandFoundation},
		{"junior age", 10, 80, BandJunior},
		{"middle age", 13, 80, BandMiddle},
		{"senior age", 16, 80, BandSenior},
		{"band boundaries inclusive", 9, 50, BandJunior},
		{"upper boundary inclusive", 11, 50, BandJunior},
		{"low score downgrades one band", 13, 39, BandJunior},
		{"low score at lowest band stays", 7, 10, BandFoundation},
		{"score at floor does not downgrade", 13, 40, BandMiddle},
		{"age below range falls to foundation", 4, 90, BandFoundation},
		{"age above range falls to foundation", 19, 90, BandFoundation},
		{"out of range with low score stays foundation", 19, 10, BandFoundation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePlacementBand(tt.age, tt.score))
		})
	}
}

func TestDeriveSkillLevel(t *testing.T) {
	assert.Equal(t, models.SkillBeginner, DeriveSkillLevel(0))
	assert.Equal(t, models.SkillBeginner, DeriveSkillLevel(39))
	assert.Equal(t, models.SkillIntermediate, DeriveSkillLevel(40))
	assert.Equal(t, models.SkillIntermediate, DeriveSkillLevel(74))
	assert.Equal(t, models.SkillAdvanced, DeriveSkillLevel(75))
	assert.Equal(t, models.SkillAdvanced, DeriveSkillLevel(100))
}

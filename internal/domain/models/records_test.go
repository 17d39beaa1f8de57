package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCivilDay(t *testing.T) {
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// 01:30 UTC is still the previous evening in Sao Paulo.
	instant := time.Date(2026, 8, 30, 1, 30, 0, 0, time.UTC)
	day := CivilDay(instant, saoPaulo)
	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), day)

	assert.True(t, SameDay(day, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))
	assert.False(t, SameDay(day, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)))
}

func TestFlavorTitle(t *testing.T) {
	assert.Equal(t, "Carne", Flavor("carne").Title())
	assert.Equal(t, "", Flavor("").Title())
}

func TestDailyReportLeftovers(t *testing.T) {
	report := DailyReport{
		StockDeclared: true,
		Lines: []FlavorLine{
			{Flavor: "carne", Initial: 10, Sold: 4, Consumed: 2},
			{Flavor: "frango", Initial: 5, Sold: 5},
		},
	}

	assert.Equal(t, map[Flavor]int{"carne": 4, "frango": 0}, report.Leftovers())
	assert.True(t, report.HasLeftovers())

	report.Lines[0].Sold = 10
	report.Lines[0].Consumed = 0
	assert.False(t, report.HasLeftovers())

	assert.False(t, DailyReport{}.HasLeftovers())
}

package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayStartUsesTheInstantsOwnZone(t *testing.T) {
	tashkent := time.FixedZone("UZT", 5*60*60)

	// 20:30 UTC is already the next calendar day in Tashkent.
	instant := time.Date(2026, 3, 9, 20, 30, 0, 0, time.UTC)

	got := dayStart(instant.In(tashkent))
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, tashkent), got)
	assert.NotEqual(t, instant.UTC().Day(), got.Day(),
		"near midnight the local window starts a day later than UTC suggests")
}

func TestDayStartIsIdempotent(t *testing.T) {
	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight, dayStart(midnight))
}

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/session"
)

func TestResult_Itineraries(t *testing.T) {
	res := &Result{
		Options: []Option{
			{Legs: []database.Flight{{FID: 10}}, TotalTime: 300},
			{Legs: []database.Flight{{FID: 20}, {FID: 30}}, TotalTime: 450},
		},
		DirectDivider: 1,
	}

	its := res.Itineraries()
	assert.Equal(t, []session.Itinerary{
		{Legs: []int64{10}},
		{Legs: []int64{20, 30}},
	}, its)
	assert.True(t, its[0].Direct())
	assert.False(t, its[1].Direct())
}

func TestResult_Itineraries_Empty(t *testing.T) {
	res := &Result{}
	assert.Empty(t, res.Itineraries())
}

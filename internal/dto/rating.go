package dto

import (
	"github.com/markettask/markettask-api/internal/models"
)

// RatingAggregateDTO represents one cached rating aggregate in API responses
type RatingAggregateDTO struct {
	Average      float64        `json:"average"`
	Count        int            `json:"count"`
	Distribution map[string]int `json:"distribution"`
}

// RatingStatsDTO represents a user's full rating statistics
type RatingStatsDTO struct {
	UserID   uint64             `json:"user_id"`
	Overall  RatingAggregateDTO `json:"overall"`
	AsPoster RatingAggregateDTO `json:"as_poster"`
	AsTasker RatingAggregateDTO `json:"as_tasker"`
}

func toAggregateDTO(summary models.RatingSummary) RatingAggregateDTO {
	return RatingAggregateDTO{
		Average: summary.Average,
		Count:   summary.Count,
		Distribution: map[string]int{
			"1": summary.Dist1,
			"2": summary.Dist2,
			"3": summary.Dist3,
			"4": summary.Dist4,
			"5": summary.Dist5,
		},
	}
}

// NewRatingStatsDTO converts cached summaries into the response shape
func NewRatingStatsDTO(userID uint64, stats map[models.RatingScope]models.RatingSummary) RatingStatsDTO {
	return RatingStatsDTO{
		UserID:   userID,
		Overall:  toAggregateDTO(stats[models.RatingScopeOverall]),
		AsPoster: toAggregateDTO(stats[models.RatingScopeAsPoster]),
		AsTasker: toAggregateDTO(stats[models.RatingScopeAsTasker]),
	}
}

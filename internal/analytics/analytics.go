package analytics

import (
	"math"
	"sort"

	"github.com/tradeskills/course-radar/backend/internal/models"
)

const topCategoryLimit = 6

// salaryDisplay is the fixed display string attached to every analytics
// payload; the per-programme salary fields stay free text.
const salaryDisplay = "£32,500"

var staticTrends = models.Trends{
	GrowingFields: []string{
		"Renewable Energy",
		"EV Charging Infrastructure",
		"Smart Home Technology",
	},
	InDemandSkills: []string{
		"Inspection & Testing",
		"18th Edition Wiring Regulations",
		"Solar PV Installation",
	},
	EmergingSectors: []string{
		"Battery Storage",
		"Heat Pump Installation",
		"Building Automation",
	},
}

// Aggregate computes summary statistics over a Programme set. It is a pure
// function: deterministic given its input, and safe on an empty list.
func Aggregate(programmes []models.Programme) models.Analytics {
	a := models.Analytics{
		AverageStartingSalary: salaryDisplay,
		Trends:                staticTrends,
	}

	if len(programmes) == 0 {
		return a
	}

	a.TotalCourses = len(programmes)

	providers := make(map[string]struct{})
	// First-seen order breaks ties in the top-category ranking.
	categoryOrder := make([]string, 0)
	categoryCounts := make(map[string]int)

	var ratingSum, employmentSum float64
	for _, p := range programmes {
		if p.Institution != "" {
			providers[p.Institution] = struct{}{}
		}
		ratingSum += p.Rating
		employmentSum += float64(p.EmploymentRate)

		if p.EmploymentRate > 90 {
			a.HighDemandPrograms++
		}
		if len(p.FundingOptions) > 0 {
			a.FundingOptionsAvailable++
		}

		if p.Category != "" {
			if _, seen := categoryCounts[p.Category]; !seen {
				categoryOrder = append(categoryOrder, p.Category)
			}
			categoryCounts[p.Category]++
		}
	}

	a.TotalProviders = len(providers)
	a.AverageRating = round1(ratingSum / float64(len(programmes)))
	a.AverageEmploymentRate = round1(employmentSum / float64(len(programmes)))
	a.TopCategories = topCategories(categoryOrder, categoryCounts)

	return a
}

func topCategories(order []string, counts map[string]int) []models.CategoryCount {
	ranked := make([]models.CategoryCount, 0, len(order))
	firstSeen := make(map[string]int, len(order))
	for i, cat := range order {
		firstSeen[cat] = i
		ranked = append(ranked, models.CategoryCount{Category: cat, Count: counts[cat]})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return firstSeen[ranked[i].Category] < firstSeen[ranked[j].Category]
	})

	if len(ranked) > topCategoryLimit {
		ranked = ranked[:topCategoryLimit]
	}
	return ranked
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

package models

import "time"

// RawRecord is an unstructured key/value bag as returned by the extraction
// service or taken verbatim from a batch's fallback list. No shape is
// enforced; any field may be absent.
type RawRecord map[string]any

// Programme is the canonical normalized education/training offering.
type Programme struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	Institution           string    `json:"institution"`
	Description           string    `json:"description"`
	Level                 string    `json:"level"`
	Duration              string    `json:"duration"`
	Category              string    `json:"category"`
	StudyMode             string    `json:"studyMode"`
	Locations             []string  `json:"locations"`
	EntryRequirements     []string  `json:"entryRequirements"`
	KeyTopics             []string  `json:"keyTopics"`
	ProgressionOptions    []string  `json:"progressionOptions"`
	FundingOptions        []string  `json:"fundingOptions"`
	TuitionFees           string    `json:"tuitionFees"`
	ApplicationDeadline   string    `json:"applicationDeadline"`
	NextIntake            string    `json:"nextIntake"`
	AverageStartingSalary string    `json:"averageStartingSalary"`
	CourseURL             string    `json:"courseUrl"`
	ImageURL              string    `json:"imageUrl,omitempty"`
	Rating                float64   `json:"rating"`
	EmploymentRate        int       `json:"employmentRate"`
	LastUpdated           time.Time `json:"lastUpdated"`
}

// Analytics summarizes a Programme set. It has no lifecycle of its own and
// is recomputed from scratch on every write.
type Analytics struct {
	TotalCourses            int             `json:"totalCourses"`
	TotalProviders          int             `json:"totalProviders"`
	AverageRating           float64         `json:"averageRating"`
	AverageEmploymentRate   float64         `json:"averageEmploymentRate"`
	AverageStartingSalary   string          `json:"averageStartingSalary"`
	HighDemandPrograms      int             `json:"highDemandPrograms"`
	FundingOptionsAvailable int             `json:"fundingOptionsAvailable"`
	TopCategories           []CategoryCount `json:"topCategories"`
	Trends                  Trends          `json:"trends"`
}

// CategoryCount pairs a category label with its programme count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Trends carries the static curated market-trend lists attached to every
// analytics payload.
type Trends struct {
	GrowingFields   []string `json:"growingFields"`
	InDemandSkills  []string `json:"inDemandSkills"`
	EmergingSectors []string `json:"emergingSectors"`
}

// RefreshStatus values for CacheEntry.
const (
	RefreshPending   = "pending"
	RefreshCompleted = "completed"
	RefreshFailed    = "failed"
)

// CacheEntry is the persisted, versioned, TTL-bound container for a
// Programme set and its analytics, keyed by (category, search_query).
type CacheEntry struct {
	Category      string      `json:"category"`
	SearchQuery   string      `json:"search_query"`
	EducationData []Programme `json:"education_data"`
	AnalyticsData Analytics   `json:"analytics_data"`
	ExpiresAt     time.Time   `json:"expires_at"`
	LastRefreshed time.Time   `json:"last_refreshed"`
	CacheVersion  int64       `json:"cache_version"`
	RefreshStatus string      `json:"refresh_status"`
}

// Key returns the composite store key. One live document per key at any time.
func (e CacheEntry) Key() string {
	return e.Category + "::" + e.SearchQuery
}

// RefreshRequest selects the orchestrator mode. Absence of both Batch and
// MergeAll means a full run over every batch.
type RefreshRequest struct {
	Batch        int  `json:"batch,omitempty"`
	ForceRefresh bool `json:"forceRefresh,omitempty"`
	MergeAll     bool `json:"mergeAll,omitempty"`
}

// RefreshResponse is the success payload for a refresh run. Data is only
// populated for full-mode runs.
type RefreshResponse struct {
	Success         bool        `json:"success"`
	Batch           int         `json:"batch,omitempty"`
	BatchName       string      `json:"batchName,omitempty"`
	TotalProgrammes int         `json:"totalProgrammes"`
	Elapsed         string      `json:"elapsed"`
	Analytics       Analytics   `json:"analytics"`
	Data            []Programme `json:"data,omitempty"`
}

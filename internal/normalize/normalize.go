package normalize

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/tradeskills/course-radar/backend/internal/catalog"
	"github.com/tradeskills/course-radar/backend/internal/models"
)

// Normalizer maps raw heterogeneous records into the canonical Programme
// shape. It never fails: missing data degrades to per-field defaults, since
// upstream extraction quality is not guaranteed.
type Normalizer struct {
	now func() time.Time
}

// New builds a Normalizer using the real clock.
func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewWithClock builds a Normalizer with an injectable clock for tests.
func NewWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// stringRule binds one canonical text field to its source-key synonyms and
// its default. Adding a field or synonym is a data change, not a code change.
type stringRule struct {
	synonyms []string
	fallback func(batch catalog.Batch) string
	assign   func(p *models.Programme, v string)
}

var stringRules = []stringRule{
	{
		synonyms: []string{"institution", "provider", "university", "college", "training_provider"},
		fallback: func(b catalog.Batch) string { return b.Name + " Providers" },
		assign:   func(p *models.Programme, v string) { p.Institution = v },
	},
	{
		synonyms: []string{"description", "summary", "overview"},
		fallback: func(b catalog.Batch) string {
			return fmt.Sprintf("Professional %s training programme for the UK market.", strings.ToLower(b.Name))
		},
		assign: func(p *models.Programme, v string) { p.Description = v },
	},
	{
		synonyms: []string{"level", "qualification_level", "qualification"},
		fallback: func(catalog.Batch) string { return "Various levels" },
		assign:   func(p *models.Programme, v string) { p.Level = v },
	},
	{
		synonyms: []string{"duration", "course_length", "length"},
		fallback: func(catalog.Batch) string { return "Varies by provider" },
		assign:   func(p *models.Programme, v string) { p.Duration = v },
	},
	{
		synonyms: []string{"category"},
		fallback: func(b catalog.Batch) string { return b.Name },
		assign:   func(p *models.Programme, v string) { p.Category = v },
	},
	{
		synonyms: []string{"study_mode", "studyMode", "mode", "delivery"},
		fallback: func(catalog.Batch) string { return "Full-time / Part-time" },
		assign:   func(p *models.Programme, v string) { p.StudyMode = v },
	},
	{
		synonyms: []string{"tuitionFees", "tuition_fees", "price", "cost", "fees"},
		fallback: func(catalog.Batch) string { return "Contact provider" },
		assign:   func(p *models.Programme, v string) { p.TuitionFees = v },
	},
	{
		synonyms: []string{"applicationDeadline", "application_deadline", "deadline"},
		fallback: func(catalog.Batch) string { return "Rolling admissions" },
		assign:   func(p *models.Programme, v string) { p.ApplicationDeadline = v },
	},
	{
		synonyms: []string{"nextIntake", "next_intake", "start_date", "intake"},
		fallback: func(catalog.Batch) string { return "Contact provider" },
		assign:   func(p *models.Programme, v string) { p.NextIntake = v },
	},
	{
		synonyms: []string{"averageStartingSalary", "average_starting_salary", "starting_salary", "salary"},
		fallback: func(catalog.Batch) string { return "£25,000 - £35,000" },
		assign:   func(p *models.Programme, v string) { p.AverageStartingSalary = v },
	},
	{
		synonyms: []string{"courseUrl", "course_url", "visit_link", "url", "link", "website"},
		fallback: func(catalog.Batch) string { return "#" },
		assign:   func(p *models.Programme, v string) { p.CourseURL = v },
	},
	{
		synonyms: []string{"imageUrl", "image_url", "image"},
		fallback: func(catalog.Batch) string { return "" },
		assign:   func(p *models.Programme, v string) { p.ImageURL = v },
	},
}

type listRule struct {
	synonyms []string
	fallback []string
	assign   func(p *models.Programme, v []string)
}

var listRules = []listRule{
	{
		synonyms: []string{"locations", "location"},
		fallback: []string{"UK-Wide", "Online"},
		assign:   func(p *models.Programme, v []string) { p.Locations = v },
	},
	{
		synonyms: []string{"entryRequirements", "entry_requirements", "requirements"},
		fallback: []string{"No formal entry requirements", "Basic literacy and numeracy"},
		assign:   func(p *models.Programme, v []string) { p.EntryRequirements = v },
	},
	{
		synonyms: []string{"keyTopics", "key_topics", "topics", "syllabus"},
		fallback: []string{"Core industry skills", "Health and safety", "Practical assessment"},
		assign:   func(p *models.Programme, v []string) { p.KeyTopics = v },
	},
	{
		synonyms: []string{"progressionOptions", "progression_options", "progression"},
		fallback: []string{"Further qualifications", "Specialist roles", "Self-employment"},
		assign:   func(p *models.Programme, v []string) { p.ProgressionOptions = v },
	},
	{
		synonyms: []string{"fundingOptions", "funding_options", "funding"},
		fallback: []string{"Self-funded", "Employer sponsorship", "Advanced Learner Loan"},
		assign:   func(p *models.Programme, v []string) { p.FundingOptions = v },
	},
}

// Normalize converts one raw record from the given batch into a Programme.
// Title and CourseURL are never empty on the way out.
func (n *Normalizer) Normalize(raw models.RawRecord, batch catalog.Batch, index int) models.Programme {
	now := n.now().UTC()

	title := firstString(raw, "title", "name", "course_title", "courseName")
	if title == "" {
		title = fmt.Sprintf("%s Programme %d", batch.Name, index+1)
	}

	p := models.Programme{
		ID:          fmt.Sprintf("%s-%d-%d", batch.Category, index, now.UnixNano()),
		Title:       title,
		LastUpdated: now,
	}

	for _, rule := range stringRules {
		if v := firstString(raw, rule.synonyms...); v != "" {
			rule.assign(&p, v)
		} else {
			rule.assign(&p, rule.fallback(batch))
		}
	}

	for _, rule := range listRules {
		if v := stringList(raw, rule.synonyms...); len(v) > 0 {
			rule.assign(&p, v)
		} else {
			rule.assign(&p, append([]string(nil), rule.fallback...))
		}
	}

	if v, ok := floatValue(raw, "rating"); ok && v >= 0 && v <= 5 {
		p.Rating = v
	} else {
		p.Rating = defaultRating(batch.Category, title)
	}

	if v, ok := floatValue(raw, "employmentRate", "employment_rate"); ok && v >= 0 && v <= 100 {
		p.EmploymentRate = int(v)
	} else {
		p.EmploymentRate = defaultEmploymentRate(batch.Category, title)
	}

	return p
}

// NormalizeAll runs Normalize over a record list in order.
func (n *Normalizer) NormalizeAll(raw []models.RawRecord, batch catalog.Batch) []models.Programme {
	out := make([]models.Programme, 0, len(raw))
	for i, rec := range raw {
		out = append(out, n.Normalize(rec, batch, i))
	}
	return out
}

// Quality defaults are derived from a hash of the batch and title rather
// than a random source, so repeated runs over the same input produce the
// same output.
func defaultRating(category, title string) float64 {
	// Band: 4.0 .. 4.8 in steps of 0.1.
	return 4.0 + float64(hash(category+"|"+title)%9)/10.0
}

func defaultEmploymentRate(category, title string) int {
	// Band: 85 .. 96.
	return 85 + int(hash(title+"|"+category)%12)
}

func hash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func firstString(raw models.RawRecord, keys ...string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		case int:
			return strconv.Itoa(s)
		}
	}
	return ""
}

func stringList(raw models.RawRecord, keys ...string) []string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch list := v.(type) {
		case []string:
			return trimAll(list)
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			if trimmed := strings.TrimSpace(list); trimmed != "" {
				return []string{trimmed}
			}
		}
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func floatValue(raw models.RawRecord, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch num := v.(type) {
		case float64:
			return num, true
		case int:
			return float64(num), true
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(num), 64); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

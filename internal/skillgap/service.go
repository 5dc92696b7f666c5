package skillgap

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"resume-insights/internal/shared/telemetry"
)

// Service computes skill gaps for a user.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: time.Now}
}

// EnsureCatalog seeds the embedded catalogue when the repo has no skills.
func (s *Service) EnsureCatalog(ctx context.Context) error {
	existing, err := s.Repo.Skills(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	skills, err := DefaultCatalog()
	if err != nil {
		return err
	}
	if err := s.Repo.Seed(ctx, skills); err != nil {
		return err
	}
	telemetry.Info("skillgap.catalog.seeded", map[string]any{"skills": len(skills)})
	return nil
}

// Analyze returns one gap per catalogue skill. A user's own levels replace the
// catalogue defaults.
func (s *Service) Analyze(ctx context.Context, userID string) (Report, error) {
	if strings.TrimSpace(userID) == "" {
		return Report{}, ErrInvalidInput
	}
	skills, err := s.Repo.Skills(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load catalog: %w", err)
	}
	levels, err := s.Repo.UserLevels(ctx, userID)
	if err != nil {
		return Report{}, fmt.Errorf("load levels: %w", err)
	}

	gaps := make([]Gap, 0, len(skills))
	for _, sk := range skills {
		current, required := sk.CurrentLevel, sk.RequiredLevel
		if lvl, ok := levels[sk.Name]; ok {
			current, required = lvl.Current, lvl.Required
		}
		courses := append([]Course(nil), sk.Courses...)
		sort.SliceStable(courses, func(i, j int) bool {
			return courses[i].Rating > courses[j].Rating
		})
		gaps = append(gaps, Gap{
			Name:          sk.Name,
			Importance:    sk.Importance,
			DemandScore:   sk.DemandScore,
			CurrentLevel:  current,
			RequiredLevel: required,
			Gap:           max(0, required-current),
			Courses:       courses,
		})
	}
	Rank(gaps)

	return Report{Skills: gaps, Summary: Summarize(gaps)}, nil
}

// Rank orders gaps by importance, then gap size, then demand, then name.
func Rank(gaps []Gap) {
	sort.SliceStable(gaps, func(i, j int) bool {
		a, b := gaps[i], gaps[j]
		if ra, rb := a.Importance.Rank(), b.Importance.Rank(); ra != rb {
			return ra > rb
		}
		if a.Gap != b.Gap {
			return a.Gap > b.Gap
		}
		if a.DemandScore != b.DemandScore {
			return a.DemandScore > b.DemandScore
		}
		return a.Name < b.Name
	})
}

// Summarize counts the open gaps and the learning available for them. Skills
// already at or above their required level do not contribute.
func Summarize(gaps []Gap) Summary {
	var sum Summary
	for _, g := range gaps {
		if g.Gap == 0 {
			continue
		}
		sum.SkillsToImprove++
		switch g.Importance {
		case ImportanceHigh:
			sum.CriticalGaps++
		case ImportanceMedium:
			sum.MediumPriority++
		}
		sum.CoursesAvailable += len(g.Courses)
		for _, c := range g.Courses {
			sum.EstimatedLearningHours += durationHours(c.Duration)
		}
	}
	return sum
}

// durationHours reads the leading number of strings like "12 hours".
func durationHours(d string) int {
	fields := strings.Fields(d)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SetLevel records a user's current and required level for a catalogue skill.
func (s *Service) SetLevel(ctx context.Context, userID, skill string, current, required int) (Gap, error) {
	skill = strings.TrimSpace(skill)
	if strings.TrimSpace(userID) == "" || skill == "" {
		return Gap{}, ErrInvalidInput
	}
	if !validLevel(current) || !validLevel(required) {
		return Gap{}, fmt.Errorf("%w: levels must be within [%d,%d]", ErrInvalidInput, MinLevel, MaxLevel)
	}

	skills, err := s.Repo.Skills(ctx)
	if err != nil {
		return Gap{}, fmt.Errorf("load catalog: %w", err)
	}
	var found *Skill
	for i := range skills {
		if skills[i].Name == skill {
			found = &skills[i]
			break
		}
	}
	if found == nil {
		return Gap{}, ErrNotFound
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if err := s.Repo.UpsertLevel(ctx, userID, Level{
		Skill:    skill,
		Current:  current,
		Required: required,
		Updated:  now().UTC(),
	}); err != nil {
		return Gap{}, err
	}
	telemetry.Info("skillgap.level.updated", map[string]any{
		"user_id":  userID,
		"skill":    skill,
		"current":  current,
		"required": required,
	})

	return Gap{
		Name:          found.Name,
		Importance:    found.Importance,
		DemandScore:   found.DemandScore,
		CurrentLevel:  current,
		RequiredLevel: required,
		Gap:           max(0, required-current),
		Courses:       found.Courses,
	}, nil
}

// ReassignUser moves a guest's levels to a signed-in user.
func (s *Service) ReassignUser(ctx context.Context, fromUserID, toUserID string) (int64, error) {
	return s.Repo.ReassignUser(ctx, fromUserID, toUserID)
}

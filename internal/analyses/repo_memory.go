package analyses

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Analysis
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[string]Analysis),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores the analysis.
func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if analysis.UpdatedAt.IsZero() {
		analysis.UpdatedAt = analysis.CreatedAt
	}
	if analysis.Trend == "" {
		analysis.Trend = TrendNeutral
	}
	r.byID[analysis.ID] = analysis
	return nil
}

// GetByID returns an analysis by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

// Transition applies a compare-and-set status change.
func (r *MemoryRepo) Transition(ctx context.Context, analysisID, from, to string, u Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkTransition(from, to); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return ErrNotFound
	}
	if analysis.Status != from {
		return staleStatusError(analysis.Status, from)
	}
	analysis.Status = to
	applyUpdate(&analysis, u)
	analysis.UpdatedAt = r.now()
	r.byID[analysisID] = analysis
	return nil
}

func applyUpdate(a *Analysis, u Update) {
	if u.Result != nil {
		a.Result = u.Result
	}
	if u.Scores != nil {
		a.Scores = u.Scores
	}
	if u.ReportedATSScore != nil {
		a.ReportedATSScore = u.ReportedATSScore
	}
	if u.ReportedClarityScore != nil {
		a.ReportedClarityScore = u.ReportedClarityScore
	}
	if u.Trend != "" {
		a.Trend = u.Trend
	}
	if u.PreviousScore != nil {
		a.PreviousScore = *u.PreviousScore
	}
	if u.ErrorCode != nil {
		a.ErrorCode = *u.ErrorCode
	}
	if u.ErrorMessage != nil {
		a.ErrorMessage = *u.ErrorMessage
	}
	if u.ErrorRetryable != nil {
		a.ErrorRetryable = *u.ErrorRetryable
	}
	if u.StartedAt != nil {
		a.StartedAt = u.StartedAt
	}
	if u.CompletedAt != nil {
		a.CompletedAt = u.CompletedAt
	}
}

// userAnalyses returns a user's analyses newest first. Callers hold the lock.
func (r *MemoryRepo) userAnalyses(userID string) []Analysis {
	out := make([]Analysis, 0)
	for _, a := range r.byID {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// List returns analyses for a user, newest first, with search, status filter
// and limit/offset.
func (r *MemoryRepo) List(ctx context.Context, userID string, filter ListFilter) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	all := r.userAnalyses(userID)
	r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]Analysis, 0, len(all))
	for _, a := range all {
		if search != "" && !strings.Contains(strings.ToLower(a.FileName), search) {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		matched = append(matched, a)
	}

	offset := max(filter.Offset, 0)
	if offset >= len(matched) {
		return []Analysis{}, nil
	}
	end := len(matched)
	if filter.Limit > 0 && offset+filter.Limit < end {
		end = offset + filter.Limit
	}
	return matched[offset:end], nil
}

// Latest returns the user's newest analysis in any status.
func (r *MemoryRepo) Latest(ctx context.Context, userID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.userAnalyses(userID)
	if len(all) == 0 {
		return Analysis{}, ErrNotFound
	}
	return all[0], nil
}

// PreviousCompleted returns the most recently completed analysis other than excludeID.
func (r *MemoryRepo) PreviousCompleted(ctx context.Context, userID, excludeID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *Analysis
	for _, a := range r.byID {
		if a.UserID != userID || a.ID == excludeID || a.Status != StatusCompleted || a.CompletedAt == nil {
			continue
		}
		if best == nil || a.CompletedAt.After(*best.CompletedAt) {
			candidate := a
			best = &candidate
		}
	}
	if best == nil {
		return Analysis{}, ErrNotFound
	}
	return *best, nil
}

// Stats counts the user's analyses and averages the ATS score of scored ones.
func (r *MemoryRepo) Stats(ctx context.Context, userID string) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var stats Stats
	var sum, scored int
	for _, a := range r.byID {
		if a.UserID != userID {
			continue
		}
		stats.Total++
		if a.Scores != nil {
			sum += a.Scores.ATS
			scored++
		}
	}
	if scored > 0 {
		stats.AverageATS = float64(sum) / float64(scored)
	}
	return stats, nil
}

// ReassignUser moves analyses between owners.
func (r *MemoryRepo) ReassignUser(ctx context.Context, fromUserID, toUserID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, a := range r.byID {
		if a.UserID == fromUserID {
			a.UserID = toUserID
			r.byID[id] = a
			n++
		}
	}
	return n, nil
}

package skillgap

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	skills map[string]Skill
	levels map[string]map[string]Level // userID -> skill -> level
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		skills: make(map[string]Skill),
		levels: make(map[string]map[string]Level),
	}
}

func (r *MemoryRepo) Seed(ctx context.Context, skills []Skill) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range skills {
		s.Courses = append([]Course(nil), s.Courses...)
		r.skills[s.Name] = s
	}
	return nil
}

func (r *MemoryRepo) Skills(ctx context.Context) ([]Skill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Skill, 0, len(r.skills))
	for _, s := range r.skills {
		s.Courses = append([]Course(nil), s.Courses...)
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) UserLevels(ctx context.Context, userID string) (map[string]Level, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Level, len(r.levels[userID]))
	for name, lvl := range r.levels[userID] {
		out[name] = lvl
	}
	return out, nil
}

func (r *MemoryRepo) UpsertLevel(ctx context.Context, userID string, level Level) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.skills[level.Skill]; !ok {
		return ErrNotFound
	}
	if r.levels[userID] == nil {
		r.levels[userID] = make(map[string]Level)
	}
	r.levels[userID][level.Skill] = level
	return nil
}

func (r *MemoryRepo) ReassignUser(ctx context.Context, fromUserID, toUserID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	from := r.levels[fromUserID]
	if len(from) == 0 {
		return 0, nil
	}
	if r.levels[toUserID] == nil {
		r.levels[toUserID] = make(map[string]Level)
	}
	var moved int64
	for name, lvl := range from {
		if _, exists := r.levels[toUserID][name]; exists {
			continue
		}
		r.levels[toUserID][name] = lvl
		moved++
	}
	delete(r.levels, fromUserID)
	return moved, nil
}

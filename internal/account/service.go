// Package account moves guest-owned data to a signed-in user.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"resume-insights/internal/analyses"
	"resume-insights/internal/documents"
	"resume-insights/internal/shared/telemetry"
	"resume-insights/internal/skillgap"
)

var ErrInvalidInput = errors.New("guest and user ids are required")

type Service struct {
	// DB, when set, makes documents, analyses and Postgres skill levels move
	// in one transaction. Otherwise the repos are reassigned one after the
	// other.
	DB        *sql.DB
	Documents documents.DocumentsRepo
	Analyses  analyses.Repo
	Skills    skillgap.Repo
}

type ClaimResult struct {
	MigratedDocuments   int `json:"migratedDocuments"`
	MigratedAnalyses    int `json:"migratedAnalyses"`
	MigratedSkillLevels int `json:"migratedSkillLevels"`
}

func NewService(db *sql.DB, docRepo documents.DocumentsRepo, analysisRepo analyses.Repo, skills skillgap.Repo) *Service {
	return &Service{DB: db, Documents: docRepo, Analyses: analysisRepo, Skills: skills}
}

// ClaimGuest reassigns everything owned by guestUserID to authedUserID.
// Claiming twice is a no-op.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, ErrInvalidInput
	}

	var (
		result ClaimResult
		err    error
	)
	if s.DB != nil {
		result, err = s.claimWithTx(ctx, guestUserID, authedUserID)
	} else {
		result, err = s.claimSequential(ctx, guestUserID, authedUserID)
	}
	if err != nil {
		return ClaimResult{}, err
	}

	telemetry.Info("account.claim_guest", map[string]any{
		"guest_user_id": guestUserID,
		"user_id":       authedUserID,
		"documents":     result.MigratedDocuments,
		"analyses":      result.MigratedAnalyses,
		"skill_levels":  result.MigratedSkillLevels,
	})
	return result, nil
}

// claimWithTx moves documents and analyses in one transaction. Skill levels
// join it when their repo lives in the same database; a separate skills
// store (SQLite, memory) is updated after the commit.
func (s *Service) claimWithTx(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback()

	docCount, err := (&documents.PGRepo{DB: tx}).ReassignUser(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim documents: %w", err)
	}
	analysisCount, err := (&analyses.PGRepo{DB: tx}).ReassignUser(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim analyses: %w", err)
	}
	result := ClaimResult{MigratedDocuments: int(docCount), MigratedAnalyses: int(analysisCount)}

	skills, shared := s.skillsIn(tx)
	if shared {
		if result.MigratedSkillLevels, err = claimSkills(ctx, skills, guestUserID, authedUserID); err != nil {
			return ClaimResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return ClaimResult{}, fmt.Errorf("commit claim: %w", err)
	}

	if !shared && s.Skills != nil {
		if result.MigratedSkillLevels, err = claimSkills(ctx, s.Skills, guestUserID, authedUserID); err != nil {
			return ClaimResult{}, err
		}
	}
	return result, nil
}

// skillsIn returns the skill repo bound to tx when it shares s.DB.
func (s *Service) skillsIn(tx *sql.Tx) (skillgap.Repo, bool) {
	repo, ok := s.Skills.(*skillgap.SQLRepo)
	if !ok || repo.DB != skillgap.DBTX(s.DB) {
		return nil, false
	}
	return skillgap.NewSQLRepo(tx, repo.Dialect), true
}

func claimSkills(ctx context.Context, repo skillgap.Repo, guestUserID, authedUserID string) (int, error) {
	moved, err := repo.ReassignUser(ctx, guestUserID, authedUserID)
	if err != nil {
		return 0, fmt.Errorf("claim skill levels: %w", err)
	}
	return int(moved), nil
}

func (s *Service) claimSequential(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	docCount, err := s.Documents.ReassignUser(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim documents: %w", err)
	}
	analysisCount, err := s.Analyses.ReassignUser(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim analyses: %w", err)
	}
	result := ClaimResult{MigratedDocuments: int(docCount), MigratedAnalyses: int(analysisCount)}
	if s.Skills != nil {
		if result.MigratedSkillLevels, err = claimSkills(ctx, s.Skills, guestUserID, authedUserID); err != nil {
			return ClaimResult{}, err
		}
	}
	return result, nil
}

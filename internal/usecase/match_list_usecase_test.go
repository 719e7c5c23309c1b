package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"talent-match/internal/domain/match"
	"talent-match/internal/repository"

	"github.com/google/uuid"
)

type fakeListMatchRepo struct {
	repository.MatchRepository

	rows      []repository.JobCandidateRow
	userRows  []repository.CandidateJobRow
	gotFilter repository.MatchListFilter
	err       error
}

func (f *fakeListMatchRepo) ListByJob(_ context.Context, _ uuid.UUID, filter repository.MatchListFilter) ([]repository.JobCandidateRow, error) {
	f.gotFilter = filter
	return f.rows, f.err
}

func (f *fakeListMatchRepo) ListByUser(context.Context, uuid.UUID, int, int) ([]repository.CandidateJobRow, error) {
	return f.userRows, f.err
}

type fakeCache struct {
	store   map[string][]byte
	version int64
	gets    int
	sets    int
}

func (f *fakeCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	f.gets++
	return false, nil
}

func (f *fakeCache) SetJSON(_ context.Context, key string, _ any) error {
	f.sets++
	if f.store == nil {
		f.store = map[string][]byte{}
	}
	f.store[key] = nil
	return nil
}

func (f *fakeCache) JobVersion(context.Context, uuid.UUID) int64 {
	return f.version
}

func listRow(userID uuid.UUID, rank int, score float64, visibility, name string) repository.JobCandidateRow {
	return repository.JobCandidateRow{
		Match: match.Record{
			ID:           uuid.New(),
			UserID:       userID,
			OverallScore: score,
			Rank:         &rank,
			Status:       match.StatusMatched,
			UpdatedAt:    time.Now().UTC(),
		},
		DisplayName:       name,
		ProfileVisibility: visibility,
	}
}

func TestListJobCandidates_InvalidInput(t *testing.T) {
	uc := NewMatchListUsecase(&fakeListMatchRepo{}, fakeRequirementRepo{exists: true}, nil, 20, 100, nil)

	if _, err := uc.ListJobCandidates(context.Background(), uuid.New(), MatchListParams{Status: "bogus"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad status, got %v", err)
	}

	bad := -5.0
	if _, err := uc.ListJobCandidates(context.Background(), uuid.New(), MatchListParams{MinScore: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad min score, got %v", err)
	}

	if _, err := uc.ListJobCandidates(context.Background(), uuid.New(), MatchListParams{Page: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative page, got %v", err)
	}

	if _, err := uc.ListJobCandidates(context.Background(), uuid.Nil, MatchListParams{}); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound for nil job, got %v", err)
	}
}

func TestListJobCandidates_JobMissing(t *testing.T) {
	uc := NewMatchListUsecase(&fakeListMatchRepo{}, fakeRequirementRepo{exists: false}, nil, 20, 100, nil)
	if _, err := uc.ListJobCandidates(context.Background(), uuid.New(), MatchListParams{}); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestListJobCandidates_DefaultsAndClamping(t *testing.T) {
	repo := &fakeListMatchRepo{}
	uc := NewMatchListUsecase(repo, fakeRequirementRepo{exists: true}, nil, 20, 100, nil)

	if _, err := uc.ListJobCandidates(context.Background(), uuid.New(), MatchListParams{}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if repo.gotFilter.Limit != 20 || repo.gotFilter.Offset != 0 {
		t.Fatalf("expected default limit 20 offset 0, got %d/%d", repo.gotFilter.Limit, repo.gotFilter.Offset)
	}

	if _, err := uc.ListJobCandidates(context.Background(), uuid.New(), MatchListParams{Page: 3, Limit: 500}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if repo.gotFilter.Limit != 100 {
		t.Fatalf("expected limit clamped to 100, got %d", repo.gotFilter.Limit)
	}
	if repo.gotFilter.Offset != 200 {
		t.Fatalf("expected offset 200 for page 3, got %d", repo.gotFilter.Offset)
	}
}

func TestListJobCandidates_AnonymousIdentityWithheld(t *testing.T) {
	anon := uuid.New()
	repo := &fakeListMatchRepo{rows: []repository.JobCandidateRow{
		listRow(uuid.New(), 1, 90, "public", "Ada"),
		listRow(anon, 2, 80, "anonymous", "Grace"),
	}}
	uc := NewMatchListUsecase(repo, fakeRequirementRepo{exists: true}, nil, 20, 100, nil)

	items, err := uc.ListJobCandidates(context.Background(), uuid.New(), MatchListParams{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].DisplayName != "Ada" {
		t.Fatalf("public profile name should pass through")
	}
	if items[1].DisplayName != "" {
		t.Fatalf("anonymous profile name must be withheld")
	}
	if items[1].ProfileVisibility != "anonymous" {
		t.Fatalf("visibility token must pass through")
	}
}

func TestListJobCandidates_PopulatesCache(t *testing.T) {
	c := &fakeCache{version: 3}
	repo := &fakeListMatchRepo{rows: []repository.JobCandidateRow{listRow(uuid.New(), 1, 77, "public", "Ada")}}
	uc := NewMatchListUsecase(repo, fakeRequirementRepo{exists: true}, c, 20, 100, nil)

	if _, err := uc.ListJobCandidates(context.Background(), uuid.New(), MatchListParams{}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.gets != 1 || c.sets != 1 {
		t.Fatalf("expected one cache get and one set, got %d/%d", c.gets, c.sets)
	}
}

func TestBrowseJobs(t *testing.T) {
	repo := &fakeListMatchRepo{userRows: []repository.CandidateJobRow{
		{Match: match.Record{ID: uuid.New(), JobID: uuid.New(), OverallScore: 66.5, Status: match.StatusMatched}, JobTitle: "Backend Engineer"},
	}}
	uc := NewMatchListUsecase(repo, fakeRequirementRepo{exists: true}, nil, 20, 100, nil)

	items, err := uc.BrowseJobs(context.Background(), uuid.New(), 1, 20)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(items) != 1 || items[0].JobTitle != "Backend Engineer" || items[0].OverallScore != 66.5 {
		t.Fatalf("unexpected browse result: %+v", items)
	}

	if _, err := uc.BrowseJobs(context.Background(), uuid.Nil, 1, 20); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for nil user, got %v", err)
	}
}

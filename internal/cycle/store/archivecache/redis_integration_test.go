//go:build integration

package archivecache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"revalidation/internal/cycle/models"
	"revalidation/internal/cycle/store/archivecache"
	id "revalidation/pkg/domain"
	"revalidation/pkg/platform/sentinel"
	"revalidation/pkg/testutil/containers"
)

type ArchiveCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *archivecache.RedisCache
}

func TestArchiveCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ArchiveCacheSuite))
}

func (s *ArchiveCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = archivecache.New(s.redis.Client, time.Minute)
}

func (s *ArchiveCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *ArchiveCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	submitted := start.AddDate(2, 0, 0)
	cycleID := id.NewCycleID()
	snap := &models.Snapshot{
		Cycle: models.Cycle{
			ID:             cycleID,
			SubjectID:      id.SubjectID(uuid.New()),
			CycleNumber:    1,
			StartDate:      start,
			EndDate:        start.AddDate(3, 0, 0),
			Status:         models.CycleStatusCompleted,
			SubmissionDate: &submitted,
		},
		CPD:        []models.CPDEntry{{ID: "c1", Hours: 3, Topic: "ethics", Date: start.AddDate(0, 2, 0)}},
		CapturedAt: submitted,
	}

	s.Require().NoError(s.cache.Set(ctx, cycleID, snap))

	got, err := s.cache.Get(ctx, cycleID)
	s.Require().NoError(err)
	s.Equal(snap.Cycle.ID, got.Cycle.ID)
	s.Equal(snap.CPD, got.CPD)
	s.True(snap.CapturedAt.Equal(got.CapturedAt))
}

func (s *ArchiveCacheSuite) TestMiss() {
	_, err := s.cache.Get(context.Background(), id.NewCycleID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ArchiveCacheSuite) TestCorruptEntryReadsAsMiss() {
	ctx := context.Background()
	cycleID := id.NewCycleID()
	s.Require().NoError(s.redis.Client.Set(ctx, "revalidation:archive:"+cycleID.String(), "{bad", time.Minute).Err())

	_, err := s.cache.Get(ctx, cycleID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Zero(s.redis.Client.Exists(ctx, "revalidation:archive:"+cycleID.String()).Val())
}

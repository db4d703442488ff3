//go:build integration

package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"revalidation/internal/cycle/outbox"
	"revalidation/pkg/testutil/containers"
)

type PostgresOutboxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *outbox.PostgresStore
}

func TestPostgresOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresOutboxSuite))
}

func (s *PostgresOutboxSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = outbox.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresOutboxSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox"))
}

func (s *PostgresOutboxSuite) insert(n int) {
	for i := range n {
		_, err := s.postgres.DB.Exec(`
			INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
			VALUES ($1, 'cycle', $2, 'cycle.submitted', '{}', $3)
		`, uuid.New(), uuid.NewString(), time.Now().Add(time.Duration(i)*time.Millisecond))
		s.Require().NoError(err)
	}
}

func (s *PostgresOutboxSuite) TestClaimMarksPublished() {
	ctx := context.Background()
	s.insert(3)

	var seen []outbox.Entry
	n, err := s.store.Claim(ctx, 10, func(_ context.Context, batch []outbox.Entry) error {
		seen = batch
		return nil
	})
	s.Require().NoError(err)
	s.Equal(3, n)
	s.Len(seen, 3)
	s.Equal("cycle.submitted", seen[0].EventType)
	s.True(seen[0].CreatedAt.Before(seen[2].CreatedAt))

	pending, err := s.store.Pending(ctx)
	s.Require().NoError(err)
	s.Zero(pending)
}

func (s *PostgresOutboxSuite) TestFailedPublishLeavesRowsPending() {
	ctx := context.Background()
	s.insert(2)

	_, err := s.store.Claim(ctx, 10, func(context.Context, []outbox.Entry) error {
		return errors.New("broker down")
	})
	s.Require().Error(err)

	pending, err := s.store.Pending(ctx)
	s.Require().NoError(err)
	s.Equal(2, pending)
}

func (s *PostgresOutboxSuite) TestConcurrentClaimsDoNotOverlap() {
	ctx := context.Background()
	s.insert(4)

	var mu sync.Mutex
	claimed := map[uuid.UUID]int{}
	var wg sync.WaitGroup
	release := make(chan struct{})
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Claim(ctx, 2, func(_ context.Context, batch []outbox.Entry) error {
				mu.Lock()
				for _, e := range batch {
					claimed[e.ID]++
				}
				mu.Unlock()
				<-release
				return nil
			})
			s.NoError(err)
		}()
	}
	s.Require().Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(claimed) == 4
	}, 5*time.Second, 10*time.Millisecond)
	close(release)
	wg.Wait()

	for _, count := range claimed {
		s.Equal(1, count)
	}
}

package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revalidation/internal/cycle/models"
	"revalidation/internal/cycle/service"
	"revalidation/internal/cycle/snapshot"
	"revalidation/internal/cycle/store"
	evidencememory "revalidation/internal/evidence/memory"
	id "revalidation/pkg/domain"
	dErrors "revalidation/pkg/domain-errors"
	"revalidation/pkg/testutil"
)

// newLifecycleRouter wires the handler to a real service over in-memory
// stores so requests travel the whole stack.
func newLifecycleRouter(t *testing.T, subject id.SubjectID) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cycles := store.NewInMemory()
	evidence := evidencememory.New()
	svc := service.New(cycles, store.NewInMemoryTx(cycles, store.NewInMemoryAudit()), snapshot.New(evidence))

	h := New(svc, logger, nil, stubValidator{subject: subject.String()}, "admin-secret", 5*time.Second)
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func TestRouterLifecycle(t *testing.T) {
	subject := id.SubjectID(uuid.New())

	testutil.Given(t, "a subject with no cycles", func(t *testing.T) {
		router := newLifecycleRouter(t, subject)

		testutil.When(t, "asking for the current cycle", func(t *testing.T) {
			rr := testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodGet, "/cycles/current")))

			testutil.Then(t, "it is not found", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeNotFound))
			})
		})

		testutil.When(t, "completing without an active cycle", func(t *testing.T) {
			rr := testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodPost, "/cycles/current/complete")))

			testutil.Then(t, "it conflicts", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeNoActiveCycle))
			})
		})
	})

	testutil.Given(t, "an initialized cycle", func(t *testing.T) {
		router := newLifecycleRouter(t, subject)
		create := testutil.NewJSONRequest(t, http.MethodPost, "/cycles", InitializeCycleRequest{
			Role:                   "Registered Nurse",
			ContractedHoursPerWeek: 37.5,
			RegistrationBody:       "NMC",
			RegistrationNumber:     "12A3456B",
			ExpiryDate:             time.Now().AddDate(1, 0, 0).Format("2006-01-02"),
		})
		rr := testutil.DoRequest(router, authed(create))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		first := testutil.UnmarshalResponse[models.Cycle](t, rr)

		testutil.When(t, "completing and renewing in one call", func(t *testing.T) {
			rr := testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodPost, "/cycles/current/complete-and-renew")))

			testutil.Then(t, "the next cycle starts where the first ended", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
				renewal := testutil.UnmarshalResponse[RenewalResponse](t, rr)
				require.NotNil(t, renewal.Next)
				assert.Equal(t, 2, renewal.Next.CycleNumber)
				assert.Equal(t, first.ID, renewal.Snapshot.Cycle.ID)
			})

			testutil.Then(t, "the first cycle's archive is readable", func(t *testing.T) {
				rr := testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodGet, "/cycles/"+first.ID.String()+"/archive")))
				testutil.AssertStatus(t, rr, http.StatusOK)
			})

			testutil.Then(t, "history lists both cycles", func(t *testing.T) {
				rr := testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodGet, "/cycles")))
				testutil.AssertStatus(t, rr, http.StatusOK)
				history := testutil.UnmarshalResponse[HistoryResponse](t, rr)
				assert.Len(t, history.Cycles, 2)
			})
		})
	})

	testutil.Given(t, "an unknown route", func(t *testing.T) {
		router := newLifecycleRouter(t, subject)

		testutil.When(t, "calling it", func(t *testing.T) {
			rr := testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodGet, "/consents")))

			testutil.Then(t, "it is not found", func(t *testing.T) {
				assert.Equal(t, http.StatusNotFound, rr.Code)
			})
		})
	})
}

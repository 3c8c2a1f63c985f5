package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugchan/bountyd/internal/bounty/domain"
	"github.com/bugchan/bountyd/internal/storage"
)

const (
	ownerAddr      = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	researcherAddr = "0xcccccccccccccccccccccccccccccccccccccccc"
	reportCID      = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
)

// mockService implements domain.Service for testing
type mockService struct {
	bounties    map[string]*domain.Bounty
	submissions map[string]*domain.Submission
	events      []storage.Event
	submitErr   error
	closeErr    error
}

func newMockService() *mockService {
	return &mockService{
		bounties:    make(map[string]*domain.Bounty),
		submissions: make(map[string]*domain.Submission),
	}
}

func key(bountyID, researcher string) string { return bountyID + "/" + researcher }

func (m *mockService) SubmitReport(ctx context.Context, bountyID string, req domain.SubmitRequest) (*domain.Submission, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	stake, _ := uint256.FromDecimal(req.Deposit)
	sub := &domain.Submission{
		BountyID:   bountyID,
		Researcher: req.Researcher,
		ContentRef: req.ContentRef,
		Stake:      stake,
		State:      domain.StatePending,
		Visibility: domain.VisibilityPrivate,
		Severity:   domain.SeverityNone,
		CreatedAt:  time.Now(),
	}
	m.submissions[key(bountyID, req.Researcher)] = sub
	return sub, nil
}

func (m *mockService) AcceptSubmission(ctx context.Context, bountyID, researcher, caller string) (*domain.Submission, error) {
	sub, ok := m.submissions[key(bountyID, researcher)]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	sub.State = domain.StateAccepted
	return sub, nil
}

func (m *mockService) RejectSubmission(ctx context.Context, bountyID, researcher, caller string) (*domain.Submission, error) {
	sub, ok := m.submissions[key(bountyID, researcher)]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	sub.State = domain.StateRejected
	sub.Stake = new(uint256.Int)
	return sub, nil
}

func (m *mockService) SetSeverity(ctx context.Context, bountyID, researcher, caller string, severity domain.Severity) (*domain.Submission, error) {
	sub, ok := m.submissions[key(bountyID, researcher)]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	sub.Severity = severity
	return sub, nil
}

func (m *mockService) SetVisibility(ctx context.Context, bountyID, researcher, caller string, visibility domain.Visibility, contentRef string) (*domain.Submission, error) {
	sub, ok := m.submissions[key(bountyID, researcher)]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	sub.Visibility = visibility
	if contentRef != "" {
		sub.ContentRef = contentRef
	}
	return sub, nil
}

func (m *mockService) Close(ctx context.Context, bountyID, caller string) (*domain.CloseResult, error) {
	if m.closeErr != nil {
		return nil, m.closeErr
	}
	b, ok := m.bounties[bountyID]
	if !ok {
		return nil, domain.ErrBountyNotFound
	}
	b.Status = domain.StatusClosed
	b.ClosedAt = time.Now()
	return &domain.CloseResult{
		Bounty:    b,
		Winners:   1,
		TotalPaid: uint256.NewInt(1020),
		Dust:      new(uint256.Int),
		Payouts:   []domain.Payment{{Recipient: researcherAddr, Amount: uint256.NewInt(1020)}},
	}, nil
}

func (m *mockService) CloseIfExpired(ctx context.Context, bountyID string) (*domain.CloseResult, error) {
	return m.Close(ctx, bountyID, "")
}

func (m *mockService) GetBounty(ctx context.Context, bountyID string) (*domain.Bounty, error) {
	if b, ok := m.bounties[bountyID]; ok {
		return b, nil
	}
	return nil, domain.ErrBountyNotFound
}

func (m *mockService) GetSubmission(ctx context.Context, bountyID, researcher string) (*domain.Submission, error) {
	if sub, ok := m.submissions[key(bountyID, researcher)]; ok {
		return sub, nil
	}
	if _, ok := m.bounties[bountyID]; !ok {
		return nil, domain.ErrBountyNotFound
	}
	return nil, domain.ErrSubmissionNotFound
}

func (m *mockService) ListSubmissions(ctx context.Context, bountyID string) ([]domain.Submission, error) {
	if _, ok := m.bounties[bountyID]; !ok {
		return nil, domain.ErrBountyNotFound
	}
	var subs []domain.Submission
	for _, sub := range m.submissions {
		if sub.BountyID == bountyID {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (m *mockService) ListEvents(ctx context.Context, bountyID string, pagination storage.PaginationParams) (*storage.PaginatedResult[storage.Event], error) {
	if _, ok := m.bounties[bountyID]; !ok {
		return nil, domain.ErrBountyNotFound
	}
	return &storage.PaginatedResult[storage.Event]{Data: m.events}, nil
}

func setupRouter(svc domain.Service) *chi.Mux {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Route("/bounties", func(r chi.Router) {
		h.RegisterReadRoutes(r)
		h.RegisterWriteRoutes(r)
	})
	return r
}

func seedBounty(m *mockService, id string) *domain.Bounty {
	b := &domain.Bounty{
		ID:            id,
		Owner:         ownerAddr,
		ContentRef:    reportCID,
		RewardPool:    uint256.NewInt(1000),
		InitialReward: uint256.NewInt(1000),
		StakeAmount:   uint256.NewInt(20),
		Status:        domain.StatusOpen,
		EndTime:       time.Now().Add(time.Hour),
		CreatedAt:     time.Now(),
	}
	m.bounties[id] = b
	return b
}

func TestHandleSubmit(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := newMockService()
		seedBounty(svc, "b1")
		router := setupRouter(svc)

		body, _ := json.Marshal(SubmitRequest{
			Researcher: researcherAddr,
			ContentRef: reportCID,
			Deposit:    "20",
		})
		req := httptest.NewRequest(http.MethodPost, "/bounties/b1/submissions", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp SubmissionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "pending", resp.State)
		assert.Equal(t, "private", resp.Visibility)
		assert.Equal(t, "20", resp.Stake)
	})

	t.Run("invalid body", func(t *testing.T) {
		router := setupRouter(newMockService())
		req := httptest.NewRequest(http.MethodPost, "/bounties/b1/submissions", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("error mapping", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			want int
			code string
		}{
			{"not found", domain.ErrBountyNotFound, http.StatusNotFound, "NOT_FOUND"},
			{"duplicate", domain.ErrAlreadySubmitted, http.StatusConflict, "ALREADY_SUBMITTED"},
			{"closed", domain.ErrBountyClosed, http.StatusConflict, "BOUNTY_CLOSED"},
			{"wrong stake", domain.ErrWrongStakeAmount, http.StatusUnprocessableEntity, "WRONG_STAKE"},
			{"invalid", domain.ErrInvalidParameters, http.StatusBadRequest, "INVALID_REQUEST"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := newMockService()
				svc.submitErr = tt.err
				router := setupRouter(svc)

				body, _ := json.Marshal(SubmitRequest{Researcher: researcherAddr, ContentRef: reportCID, Deposit: "20"})
				req := httptest.NewRequest(http.MethodPost, "/bounties/b1/submissions", bytes.NewReader(body))
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				assert.Equal(t, tt.want, rec.Code)
				var resp map[string]map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.code, resp["error"]["code"])
			})
		}
	})
}

func TestHandleTriage(t *testing.T) {
	svc := newMockService()
	seedBounty(svc, "b1")
	svc.submissions[key("b1", researcherAddr)] = &domain.Submission{
		BountyID:   "b1",
		Researcher: researcherAddr,
		ContentRef: reportCID,
		Stake:      uint256.NewInt(20),
		State:      domain.StatePending,
		Visibility: domain.VisibilityPrivate,
		Severity:   domain.SeverityNone,
	}
	router := setupRouter(svc)

	body, _ := json.Marshal(CallerRequest{Caller: ownerAddr})
	req := httptest.NewRequest(http.MethodPost, "/bounties/b1/submissions/"+researcherAddr+"/accept", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SubmissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp.State)
}

func TestHandleSetSeverity(t *testing.T) {
	svc := newMockService()
	seedBounty(svc, "b1")
	svc.submissions[key("b1", researcherAddr)] = &domain.Submission{
		BountyID:   "b1",
		Researcher: researcherAddr,
		Stake:      uint256.NewInt(20),
		State:      domain.StatePending,
		Visibility: domain.VisibilityPrivate,
		Severity:   domain.SeverityNone,
	}
	router := setupRouter(svc)

	t.Run("sets severity", func(t *testing.T) {
		body, _ := json.Marshal(SeverityRequest{Caller: ownerAddr, Severity: "high"})
		req := httptest.NewRequest(http.MethodPost, "/bounties/b1/submissions/"+researcherAddr+"/severity", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SubmissionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "high", resp.Severity)
	})

	t.Run("rejects unknown severity", func(t *testing.T) {
		body, _ := json.Marshal(SeverityRequest{Caller: ownerAddr, Severity: "catastrophic"})
		req := httptest.NewRequest(http.MethodPost, "/bounties/b1/submissions/"+researcherAddr+"/severity", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleClose(t *testing.T) {
	t.Run("settlement response", func(t *testing.T) {
		svc := newMockService()
		seedBounty(svc, "b1")
		router := setupRouter(svc)

		body, _ := json.Marshal(CallerRequest{Caller: ownerAddr})
		req := httptest.NewRequest(http.MethodPost, "/bounties/b1/close", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp CloseResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "closed", resp.Status)
		assert.Equal(t, 1, resp.Winners)
		assert.Equal(t, "1020", resp.TotalPaid)
		require.Len(t, resp.Payouts, 1)
	})

	t.Run("forbidden", func(t *testing.T) {
		svc := newMockService()
		seedBounty(svc, "b1")
		svc.closeErr = domain.ErrNotAuthorized
		router := setupRouter(svc)

		body, _ := json.Marshal(CallerRequest{Caller: researcherAddr})
		req := httptest.NewRequest(http.MethodPost, "/bounties/b1/close", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("not expired", func(t *testing.T) {
		svc := newMockService()
		seedBounty(svc, "b1")
		svc.closeErr = domain.ErrNotExpired
		router := setupRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/bounties/b1/close-expired", bytes.NewReader([]byte("{}")))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHandleGetSubmission(t *testing.T) {
	svc := newMockService()
	seedBounty(svc, "b1")
	svc.submissions[key("b1", researcherAddr)] = &domain.Submission{
		BountyID:   "b1",
		Researcher: researcherAddr,
		ContentRef: reportCID,
		Stake:      uint256.NewInt(20),
		State:      domain.StatePending,
		Visibility: domain.VisibilityPrivate,
		Severity:   domain.SeverityNone,
	}
	router := setupRouter(svc)

	t.Run("private ref hidden from strangers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/bounties/b1/submissions/"+researcherAddr, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SubmissionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Empty(t, resp.ContentRef)
	})

	t.Run("author sees their own ref", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/bounties/b1/submissions/"+researcherAddr+"?viewer="+researcherAddr, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SubmissionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, reportCID, resp.ContentRef)
	})

	t.Run("owner sees any ref", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/bounties/b1/submissions/"+researcherAddr+"?viewer="+ownerAddr, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SubmissionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, reportCID, resp.ContentRef)
	})

	t.Run("public ref visible to everyone", func(t *testing.T) {
		svc.submissions[key("b1", researcherAddr)].Visibility = domain.VisibilityPublic
		req := httptest.NewRequest(http.MethodGet, "/bounties/b1/submissions/"+researcherAddr, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SubmissionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, reportCID, resp.ContentRef)
	})

	t.Run("unknown submission", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/bounties/b1/submissions/0x1111111111111111111111111111111111111111", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleListEvents(t *testing.T) {
	svc := newMockService()
	seedBounty(svc, "b1")
	svc.events = []storage.Event{
		{Seq: 1, BountyID: "b1", Type: "bounty_created"},
		{Seq: 2, BountyID: "b1", Type: "report_submitted", Researcher: researcherAddr},
	}
	router := setupRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/bounties/b1/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []EventResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "bounty_created", resp.Data[0].Type)
}

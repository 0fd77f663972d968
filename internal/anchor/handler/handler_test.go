package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"certus/internal/anchor/handler/mocks"
	"certus/internal/anchor/models"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/testutil"
)

var wallet = "0x" + strings.Repeat("7c", 32)

func newRouter(t *testing.T) (*chi.Mux, *mocks.MockService) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	r := chi.NewRouter()
	h := New(svc, slog.New(slog.DiscardHandler))
	h.Register(r)
	h.RegisterPublic(r)
	return r, svc
}

func TestHandleIssue(t *testing.T) {
	userID := id.UserID(uuid.New())
	certID := id.CertificateID(uuid.New())
	path := "/certificates/" + certID.String() + "/anchor"
	body := map[string]string{"wallet_address": wallet}

	authed := func(t *testing.T, path string, body any) *http.Request {
		return testutil.WithUserID(testutil.NewJSONRequest(t, http.MethodPost, path, body), userID.String())
	}

	t.Run("unauthenticated", func(t *testing.T) {
		r, _ := newRouter(t)
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, path, body))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("malformed certificate id", func(t *testing.T) {
		r, _ := newRouter(t)
		rr := testutil.DoRequest(r, authed(t, "/certificates/nope/anchor", body))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})

	t.Run("invalid wallet", func(t *testing.T) {
		for _, w := range []string{"", "0x1234", strings.Repeat("a", 66), "0x" + strings.Repeat("g", 64)} {
			r, _ := newRouter(t)
			rr := testutil.DoRequest(r, authed(t, path, map[string]string{"wallet_address": w}))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
		}
	})

	t.Run("anchors the certificate", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().IssueAnchor(gomock.Any(), userID, certID, wallet).Return(&models.Receipt{
			CertificateID: certID.String(),
			TxHash:        "9xQ3",
			NFTID:         "0x5f0c",
			DataHash:      "abc",
			ExplorerLink:  "https://suiscan.xyz/testnet/tx/9xQ3",
		}, nil)

		rr := testutil.DoRequest(r, authed(t, path, body))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[AnchorResponse](t, rr)
		assert.Equal(t, "9xQ3", resp.TxHash)
		assert.Equal(t, "0x5f0c", resp.NFTID)
		assert.Equal(t, "https://suiscan.xyz/testnet/tx/9xQ3", resp.ExplorerLink)
		assert.False(t, resp.AlreadyAnchored)
	})

	t.Run("already anchored is a 200", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().IssueAnchor(gomock.Any(), userID, certID, wallet).
			Return(&models.Receipt{CertificateID: certID.String(), TxHash: "9xQ3", NFTID: "0x5f0c", AlreadyAnchored: true}, nil)

		rr := testutil.DoRequest(r, authed(t, path, body))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "already_anchored", true)
	})

	t.Run("ledger failure is retryable", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().IssueAnchor(gomock.Any(), userID, certID, wallet).
			Return(nil, dErrors.New(dErrors.CodeExternal, "failed to mint certificate token: node unreachable"))

		rr := testutil.DoRequest(r, authed(t, path, body))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "external_failure")
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	})

	t.Run("concurrent anchoring conflicts", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().IssueAnchor(gomock.Any(), userID, certID, wallet).
			Return(nil, dErrors.New(dErrors.CodeConflict, "certificate anchoring already in progress"))

		rr := testutil.DoRequest(r, authed(t, path, body))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})
}

func TestHandleValidate(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Validate(gomock.Any(), "0x5f0c").Return(models.Validation{
			IsValid: true,
			Message: models.MessageValid,
			Data:    &models.TokenData{ObjectID: "0x5f0c", DataHash: "abc", Recipient: wallet},
		}, nil)

		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/anchors/0x5f0c/validate"))
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[models.Validation](t, rr)
		assert.True(t, resp.IsValid)
		require.NotNil(t, resp.Data)
		assert.Equal(t, "abc", resp.Data.DataHash)
	})

	t.Run("counterfeit token is a 200", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Validate(gomock.Any(), "0xfake").Return(models.Invalid(models.MessageCounterfeit), nil)

		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/anchors/0xfake/validate"))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "is_valid", false)
		testutil.AssertJSONContains(t, rr, "message", models.MessageCounterfeit)
	})

	t.Run("unreadable token is a 200", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Validate(gomock.Any(), "0x5f0c").Return(models.Invalid(models.MessageUnreadable), nil)

		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/anchors/0x5f0c/validate"))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "is_valid", false)
		testutil.AssertJSONContains(t, rr, "message", models.MessageUnreadable)
	})

	t.Run("service failure", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Validate(gomock.Any(), "0x5f0c").Return(models.Validation{}, dErrors.New(dErrors.CodeUnavailable, "ledger unavailable"))

		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/anchors/0x5f0c/validate"))
		testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, "unavailable")
	})
}

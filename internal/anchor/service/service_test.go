package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"certus/internal/anchor/cache"
	"certus/internal/anchor/ledger"
	"certus/internal/anchor/models"
	"certus/internal/anchor/service/mocks"
	catalog "certus/internal/catalog/models"
	catalogStore "certus/internal/catalog/store"
	certmodels "certus/internal/certificate/models"
	certService "certus/internal/certificate/service"
	certStore "certus/internal/certificate/store"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/audit"
	"certus/pkg/platform/audit/publisher"
	auditmemory "certus/pkg/platform/audit/store/memory"
	"certus/pkg/platform/circuit"
	"certus/pkg/platform/tx"
	"certus/pkg/requestcontext"
)

const (
	testPackage = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	testImage   = "https://assets.example.com/certificate.png"
	testDigest  = "9xQ3kW7cZ"
	testNFT     = "0x5f0c"
)

var testWallet = "0x" + strings.Repeat("AB", 32)

type AnchorServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	ledger   *mocks.MockLedger
	store    *certStore.InMemoryStore
	catalog  *catalogStore.InMemoryStore
	audit    *auditmemory.InMemoryStore
	certs    *certService.Service
	service  *Service
	userID   id.UserID
	certifID id.CertificationID
	now      time.Time
}

func TestAnchorServiceSuite(t *testing.T) {
	suite.Run(t, new(AnchorServiceSuite))
}

func (s *AnchorServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ledger = mocks.NewMockLedger(s.ctrl)
	s.store = certStore.NewInMemory()
	s.catalog = catalogStore.NewInMemory()
	s.audit = auditmemory.NewInMemoryStore()
	s.userID = id.UserID(uuid.New())
	s.certifID = id.CertificationID(uuid.New())
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.catalog.Seed(
		[]catalog.Certification{{ID: s.certifID, Name: "Go Fundamentals", PassingScore: 70, IsActive: true}},
		nil,
		[]catalog.Student{{ID: s.userID, Name: "Ada Lovelace"}},
	)

	var err error
	s.certs, err = certService.New(s.store, s.catalog, tx.NewLocker(),
		certService.WithAuditPublisher(publisher.New(s.audit)))
	s.Require().NoError(err)
	s.service = s.newService(circuit.New("ledger"))
}

func (s *AnchorServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AnchorServiceSuite) newService(breaker *circuit.Breaker) *Service {
	svc, err := New(s.certs, s.ledger, Settings{
		PackageID:       testPackage,
		ImageURL:        testImage,
		ExplorerBaseURL: "https://suiscan.xyz/testnet",
		ReconcileGrace:  5 * time.Minute,
	}, WithBreaker(breaker), WithCache(cache.NewMemoryCache(time.Minute)))
	s.Require().NoError(err)
	return svc
}

func (s *AnchorServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(time.Hour))
}

func (s *AnchorServiceSuite) issue(userID id.UserID) *certmodels.Certificate {
	cert, err := s.certs.IssueIfNoneActive(requestcontext.WithTime(context.Background(), s.now), userID, s.certifID, id.ExamID(uuid.New()))
	s.Require().NoError(err)
	return cert
}

func (s *AnchorServiceSuite) stored(certID id.CertificateID) *certmodels.Certificate {
	cert, err := s.store.FindByID(context.Background(), certID)
	s.Require().NoError(err)
	return cert
}

func (s *AnchorServiceSuite) actions() []string {
	events, err := s.audit.ListAll(context.Background())
	s.Require().NoError(err)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func outage() error {
	return &ledger.Error{Category: ledger.ErrorProviderOutage, Op: "sui_executeTransactionBlock", Message: "node unreachable", Retryable: true}
}

func (s *AnchorServiceSuite) TestNew() {
	s.Run("certificates are required", func() {
		_, err := New(nil, s.ledger, Settings{PackageID: testPackage})
		s.ErrorContains(err, "certificates are required")
	})
	s.Run("enabled ledger needs a package", func() {
		_, err := New(s.certs, s.ledger, Settings{})
		s.ErrorContains(err, "package id is required")
	})
	s.Run("nil ledger disables anchoring", func() {
		svc, err := New(s.certs, nil, Settings{})
		s.Require().NoError(err)
		s.False(svc.Enabled())
	})
}

func (s *AnchorServiceSuite) TestDisabled() {
	svc, err := New(s.certs, nil, Settings{})
	s.Require().NoError(err)
	cert := s.issue(s.userID)

	s.Run("malformed wallet is rejected first", func() {
		_, err := svc.IssueAnchor(s.ctx(), s.userID, cert.ID, "not-a-wallet")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("issue is unavailable", func() {
		_, err := svc.IssueAnchor(s.ctx(), s.userID, cert.ID, testWallet)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
	s.Run("validate reports an unreadable token", func() {
		result, err := svc.Validate(s.ctx(), testNFT)
		s.Require().NoError(err)
		s.False(result.IsValid)
		s.Equal(models.MessageUnreadable, result.Message)
		s.Nil(result.Data)
	})
}

func (s *AnchorServiceSuite) TestIssueAnchor() {
	cert := s.issue(s.userID)
	wallet := strings.ToLower(testWallet)

	var minted models.Receipt
	s.Run("mints and records the token", func() {
		var req ledger.MintRequest
		s.ledger.EXPECT().SubmitMint(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r ledger.MintRequest) (string, error) {
				req = r
				return testDigest, nil
			})
		s.ledger.EXPECT().AwaitFinality(gomock.Any(), testDigest).
			Return(&ledger.TxOutcome{Digest: testDigest, Checkpointed: true, Success: true, NFTID: testNFT}, nil)

		receipt, err := s.service.IssueAnchor(s.ctx(), s.userID, cert.ID, testWallet)
		s.Require().NoError(err)
		minted = *receipt

		stored := s.stored(cert.ID)
		s.Equal("Ada Lovelace", stored.SnapshotStudentName)
		s.Equal("Go Fundamentals", stored.SnapshotCertificationName)
		doc, err := models.DocumentFor(stored)
		s.Require().NoError(err)

		s.Equal(ledger.MintRequest{DataHash: doc.Hash(), ImageURL: testImage, Recipient: wallet}, req)
		s.Equal(testDigest, receipt.TxHash)
		s.Equal(testNFT, receipt.NFTID)
		s.Equal(doc.Hash(), receipt.DataHash)
		s.Equal("https://suiscan.xyz/testnet/tx/"+testDigest, receipt.ExplorerLink)
		s.False(receipt.AlreadyAnchored)

		s.Equal(certmodels.Anchored, stored.Anchor.Status)
		s.Equal(wallet, stored.Anchor.WalletAddress)
		s.Equal(testNFT, stored.Anchor.NFTID)
		s.Equal([]string{
			string(audit.EventCertificateIssued),
			string(audit.EventAnchorRequested),
			string(audit.EventAnchored),
		}, s.actions())
	})

	s.Run("anchored certificate returns the stored receipt", func() {
		receipt, err := s.service.IssueAnchor(s.ctx(), s.userID, cert.ID, testWallet)
		s.Require().NoError(err)
		s.True(receipt.AlreadyAnchored)
		s.Equal(minted.TxHash, receipt.TxHash)
		s.Equal(minted.NFTID, receipt.NFTID)
		s.Equal(minted.DataHash, receipt.DataHash)
	})
}

func (s *AnchorServiceSuite) TestIssueAnchor_Rejections() {
	cert := s.issue(s.userID)

	s.Run("unknown certificate", func() {
		_, err := s.service.IssueAnchor(s.ctx(), s.userID, id.CertificateID(uuid.New()), testWallet)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
	s.Run("certificate of another user", func() {
		_, err := s.service.IssueAnchor(s.ctx(), id.UserID(uuid.New()), cert.ID, testWallet)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
	s.Run("expired certificate", func() {
		late := requestcontext.WithTime(context.Background(), cert.ExpiresAt)
		_, err := s.service.IssueAnchor(late, s.userID, cert.ID, testWallet)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
	s.Run("wallet of the wrong length", func() {
		_, err := s.service.IssueAnchor(s.ctx(), s.userID, cert.ID, "0xabc")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AnchorServiceSuite) TestIssueAnchor_SubmitFailure() {
	cert := s.issue(s.userID)

	s.ledger.EXPECT().SubmitMint(gomock.Any(), gomock.Any()).Return("", outage())
	_, err := s.service.IssueAnchor(s.ctx(), s.userID, cert.ID, testWallet)
	s.True(dErrors.HasCode(err, dErrors.CodeExternal))
	s.True(dErrors.Retryable(err))
	s.ErrorContains(err, "node unreachable")

	stored := s.stored(cert.ID)
	s.Equal(certmodels.AnchorFailed, stored.Anchor.Status)
	s.Contains(stored.Anchor.Error, "node unreachable")

	s.Run("failed anchoring can be retried", func() {
		s.ledger.EXPECT().SubmitMint(gomock.Any(), gomock.Any()).Return(testDigest, nil)
		s.ledger.EXPECT().AwaitFinality(gomock.Any(), testDigest).
			Return(&ledger.TxOutcome{Digest: testDigest, Checkpointed: true, Success: true, NFTID: testNFT}, nil)
		receipt, err := s.service.IssueAnchor(s.ctx(), s.userID, cert.ID, testWallet)
		s.Require().NoError(err)
		s.Equal(testNFT, receipt.NFTID)
	})
}

func (s *AnchorServiceSuite) TestIssueAnchor_ExecutionFailed() {
	cert := s.issue(s.userID)

	s.ledger.EXPECT().SubmitMint(gomock.Any(), gomock.Any()).Return(testDigest, nil)
	s.ledger.EXPECT().AwaitFinality(gomock.Any(), testDigest).
		Return(&ledger.TxOutcome{Digest: testDigest, Checkpointed: true, Error: "MoveAbort in mint_certificate"}, nil)

	_, err := s.service.IssueAnchor(s.ctx(), s.userID, cert.ID, testWallet)
	s.True(dErrors.HasCode(err, dErrors.CodeExternal))
	s.ErrorContains(err, "MoveAbort")

	stored := s.stored(cert.ID)
	s.Equal(certmodels.AnchorFailed, stored.Anchor.Status)
	s.Equal(testDigest, stored.Anchor.TxHash)
	s.Equal("MoveAbort in mint_certificate", stored.Anchor.Error)
}

func (s *AnchorServiceSuite) TestIssueAnchor_FinalityTimeout() {
	cert := s.issue(s.userID)

	s.ledger.EXPECT().SubmitMint(gomock.Any(), gomock.Any()).Return(testDigest, nil)
	s.ledger.EXPECT().AwaitFinality(gomock.Any(), testDigest).
		Return(nil, &ledger.Error{Category: ledger.ErrorTimeout, Op: "sui_getTransactionBlock", Message: "not final", Retryable: true})

	_, err := s.service.IssueAnchor(s.ctx(), s.userID, cert.ID, testWallet)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))

	stored := s.stored(cert.ID)
	s.Equal(certmodels.AnchorRequested, stored.Anchor.Status)
	s.Equal(testDigest, stored.Anchor.TxHash)

	s.Run("pending claim blocks a second mint", func() {
		_, err := s.service.IssueAnchor(s.ctx(), s.userID, cert.ID, testWallet)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *AnchorServiceSuite) TestIssueAnchor_BreakerOpen() {
	svc := s.newService(circuit.New("ledger", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour)))
	cert := s.issue(s.userID)

	s.ledger.EXPECT().SubmitMint(gomock.Any(), gomock.Any()).Return("", outage())
	_, err := svc.IssueAnchor(s.ctx(), s.userID, cert.ID, testWallet)
	s.True(dErrors.HasCode(err, dErrors.CodeExternal))

	_, err = svc.IssueAnchor(s.ctx(), s.userID, cert.ID, testWallet)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal(certmodels.AnchorFailed, s.stored(cert.ID).Anchor.Status)
}

func certificateObject(pkg string) *ledger.Object {
	return &ledger.Object{
		ID:    testNFT,
		Type:  pkg + "::certificate::Certificate",
		Owner: strings.ToLower(testWallet),
		Fields: map[string]json.RawMessage{
			"data_hash": json.RawMessage(`"abc123"`),
			"image_url": json.RawMessage(`"` + testImage + `"`),
			"recipient": json.RawMessage(`"` + strings.ToLower(testWallet) + `"`),
		},
	}
}

func (s *AnchorServiceSuite) TestValidate() {
	s.Run("authentic token is valid and cached", func() {
		s.ledger.EXPECT().GetObject(gomock.Any(), testNFT).Return(certificateObject(testPackage), nil).Times(1)

		result, err := s.service.Validate(s.ctx(), testNFT)
		s.Require().NoError(err)
		s.True(result.IsValid)
		s.Equal(models.MessageValid, result.Message)
		s.Require().NotNil(result.Data)
		s.Equal("abc123", result.Data.DataHash)
		s.Equal(testImage, result.Data.ImageURL)
		s.Equal(strings.ToLower(testWallet), result.Data.Recipient)

		again, err := s.service.Validate(s.ctx(), testNFT)
		s.Require().NoError(err)
		s.Equal(result, again)
	})

	s.Run("short package address matches", func() {
		s.ledger.EXPECT().GetObject(gomock.Any(), "0x1").Return(certificateObject("0xaa"), nil)
		result, err := s.service.Validate(s.ctx(), "0x1")
		s.Require().NoError(err)
		s.True(result.IsValid)
	})

	cases := []struct {
		name    string
		object  *ledger.Object
		err     error
		message string
	}{
		{name: "missing object", err: &ledger.Error{Category: ledger.ErrorNotFound}, message: models.MessageNotFound},
		{name: "node outage", err: outage(), message: models.MessageUnreadable},
		{name: "other kind", object: &ledger.Object{ID: "0x2", Type: testPackage + "::coin::Coin<0x2::sui::SUI>"}, message: models.MessageInvalidKind},
		{name: "other package", object: certificateObject("0xbb"), message: models.MessageCounterfeit},
	}
	for i, tc := range cases {
		s.Run(tc.name, func() {
			nftID := "0xbad" + string(rune('0'+i))
			s.ledger.EXPECT().GetObject(gomock.Any(), nftID).Return(tc.object, tc.err).Times(2)

			for range 2 {
				result, err := s.service.Validate(s.ctx(), nftID)
				s.Require().NoError(err)
				s.False(result.IsValid)
				s.Equal(tc.message, result.Message)
				s.Nil(result.Data)
			}
		})
	}

	s.Run("empty id is not found", func() {
		result, err := s.service.Validate(s.ctx(), "  ")
		s.Require().NoError(err)
		s.Equal(models.MessageNotFound, result.Message)
	})
}

func (s *AnchorServiceSuite) TestReconcile() {
	later := requestcontext.WithTime(context.Background(), s.now.Add(10*time.Minute))
	claimCtx := requestcontext.WithTime(context.Background(), s.now)

	claim := func(name, digest string) *certmodels.Certificate {
		userID := id.UserID(uuid.New())
		s.catalog.Seed(nil, nil, []catalog.Student{{ID: userID, Name: name}})
		cert := s.issue(userID)
		s.Require().NoError(s.certs.ClaimAnchor(claimCtx, cert, "hash-"+name, strings.ToLower(testWallet)))
		if digest != "" {
			s.Require().NoError(s.certs.RecordAnchorTx(claimCtx, cert.ID, digest))
		}
		return cert
	}
	minted := claim("minted", "d-minted")
	dropped := claim("dropped", "d-dropped")
	interrupted := claim("interrupted", "")
	pending := claim("pending", "d-pending")
	unreachable := claim("unreachable", "d-unreachable")

	s.ledger.EXPECT().Transaction(gomock.Any(), "d-minted").
		Return(&ledger.TxOutcome{Digest: "d-minted", Checkpointed: true, Success: true, NFTID: testNFT}, nil)
	s.ledger.EXPECT().Transaction(gomock.Any(), "d-dropped").
		Return(nil, &ledger.Error{Category: ledger.ErrorNotFound})
	s.ledger.EXPECT().Transaction(gomock.Any(), "d-pending").
		Return(&ledger.TxOutcome{Digest: "d-pending"}, nil)
	s.ledger.EXPECT().Transaction(gomock.Any(), "d-unreachable").Return(nil, outage())

	settled, err := s.service.Reconcile(later)
	s.Require().NoError(err)
	s.Equal(3, settled)

	s.Equal(certmodels.Anchored, s.stored(minted.ID).Anchor.Status)
	s.Equal(testNFT, s.stored(minted.ID).Anchor.NFTID)
	s.Equal(certmodels.AnchorFailed, s.stored(dropped.ID).Anchor.Status)
	s.Equal("transaction not found on ledger", s.stored(dropped.ID).Anchor.Error)
	s.Equal(certmodels.AnchorFailed, s.stored(interrupted.ID).Anchor.Status)
	s.Equal(interruptedReason, s.stored(interrupted.ID).Anchor.Error)
	s.Equal(certmodels.AnchorRequested, s.stored(pending.ID).Anchor.Status)
	s.Equal(certmodels.AnchorRequested, s.stored(unreachable.ID).Anchor.Status)

	s.Run("claims inside the grace period are left alone", func() {
		fresh := claim("fresh", "")
		settled, err := s.service.Reconcile(requestcontext.WithTime(context.Background(), s.now.Add(2*time.Minute)))
		s.Require().NoError(err)
		s.Equal(0, settled)
		s.Equal(certmodels.AnchorRequested, s.stored(fresh.ID).Anchor.Status)
	})
}

func (s *AnchorServiceSuite) TestFieldString() {
	fields := map[string]json.RawMessage{
		"plain":   json.RawMessage(`"https://a"`),
		"wrapped": json.RawMessage(`{"url":"https://b"}`),
		"nested":  json.RawMessage(`{"type":"0x2::url::Url","fields":{"url":"https://c"}}`),
		"number":  json.RawMessage(`7`),
	}
	s.Equal("https://a", fieldString(fields, "plain"))
	s.Equal("https://b", fieldString(fields, "wrapped"))
	s.Equal("https://c", fieldString(fields, "nested"))
	s.Equal("", fieldString(fields, "number"))
	s.Equal("", fieldString(fields, "absent"))
}

package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domainerrors"
)

type TokenSuite struct {
	suite.Suite
	svc *Service
}

func TestTokenSuite(t *testing.T) {
	suite.Run(t, new(TokenSuite))
}

func (s *TokenSuite) SetupTest() {
	s.svc = NewService("test-signing-key", time.Hour)
}

func (s *TokenSuite) TestIssueAndValidate() {
	candidateID := id.NewCandidateID()
	sessionID := id.NewSessionID()

	tok, err := s.svc.Issue(candidateID, sessionID)
	s.Require().NoError(err)
	s.NotEmpty(tok)

	claims, err := s.svc.Validate(tok)
	s.Require().NoError(err)
	s.Equal(candidateID.String(), claims.CandidateID)
	s.Equal(sessionID.String(), claims.SessionID)
	s.Equal("vigil", claims.Issuer)
	s.NotEmpty(claims.ID)
}

func (s *TokenSuite) TestValidateRejections() {
	s.Run("expired token", func() {
		expired := NewService("test-signing-key", -time.Minute)
		tok, err := expired.Issue(id.NewCandidateID(), id.NewSessionID())
		s.Require().NoError(err)

		_, err = s.svc.Validate(tok)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("wrong signing key", func() {
		other := NewService("a-different-key", time.Hour)
		tok, err := other.Issue(id.NewCandidateID(), id.NewSessionID())
		s.Require().NoError(err)

		_, err = s.svc.Validate(tok)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("garbage input", func() {
		_, err := s.svc.Validate("not.a.jwt")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("empty string", func() {
		_, err := s.svc.Validate("")
		s.Require().Error(err)
	})
}

func (s *TokenSuite) TestTokensAreUnique() {
	candidateID := id.NewCandidateID()
	sessionID := id.NewSessionID()

	a, err := s.svc.Issue(candidateID, sessionID)
	s.Require().NoError(err)
	b, err := s.svc.Issue(candidateID, sessionID)
	s.Require().NoError(err)
	s.NotEqual(a, b)
}

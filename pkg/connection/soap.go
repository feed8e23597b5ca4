package connection

import (
	"context"

	"github.com/gheeres/ricoh-go/pkg/transport"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// SOAPSessionService implements SessionService over a SOAP caller.
type SOAPSessionService struct {
	caller transport.Caller

	// sendLockMode adds the lockMode element to startSession. Only the
	// directory service accepts it.
	sendLockMode bool
}

// NewSOAPSessionService creates a session service. Set sendLockMode for
// services that take a lock mode on startSession.
func NewSOAPSessionService(caller transport.Caller, sendLockMode bool) *SOAPSessionService {
	return &SOAPSessionService{caller: caller, sendLockMode: sendLockMode}
}

// StartSession implements SessionService.
func (s *SOAPSessionService) StartSession(ctx context.Context, auth string, timeLimit uint16, t wire.SessionType) (wire.Status, string, error) {
	req := &wire.StartSessionRequest{Auth: auth, TimeLimit: timeLimit}
	if s.sendLockMode {
		req.LockMode = t.LockMode()
	}
	var resp wire.StartSessionResponse
	if err := s.caller.Call(ctx, wire.ActionStartSession, req, &resp); err != nil {
		return "", "", err
	}
	return resp.ReturnValue, resp.SessionID, nil
}

// TerminateSession implements SessionService.
func (s *SOAPSessionService) TerminateSession(ctx context.Context, sessionID string) (wire.Status, error) {
	var resp wire.TerminateSessionResponse
	if err := s.caller.Call(ctx, wire.ActionTerminateSession, &wire.TerminateSessionRequest{SessionID: sessionID}, &resp); err != nil {
		return "", err
	}
	return resp.ReturnValue, nil
}

// GetServiceCapability implements SessionService.
func (s *SOAPSessionService) GetServiceCapability(ctx context.Context, sessionID string) (wire.PropertyList, error) {
	var resp wire.GetServiceCapabilityResponse
	if err := s.caller.Call(ctx, wire.ActionGetServiceCapability, &wire.GetServiceCapabilityRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return resp.Capabilities, nil
}

var _ SessionService = (*SOAPSessionService)(nil)

package devicemanagement

import (
	"context"

	"github.com/gheeres/ricoh-go/pkg/connection"
	"github.com/gheeres/ricoh-go/pkg/transport"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// Remote is the device management service stub.
type Remote interface {
	connection.SessionService

	GetObjects(ctx context.Context, sessionID string, deviceID uint32, class string) ([]string, error)
	GetObjectCapability(ctx context.Context, sessionID string, deviceID, objectID uint32) (*wire.ObjectCapability, error)
	GetObject(ctx context.Context, sessionID string, deviceID, objectID uint32, fieldNames []string) (*wire.Object, error)
	UpdateObject(ctx context.Context, sessionID string, deviceID uint32, obj wire.Object, options wire.PropertyList) (wire.Status, error)
}

// SOAPRemote implements Remote over a SOAP caller.
type SOAPRemote struct {
	*connection.SOAPSessionService
	caller transport.Caller
}

// NewSOAPRemote creates a Remote. The device management service does not
// take a lock mode on startSession.
func NewSOAPRemote(caller transport.Caller) *SOAPRemote {
	return &SOAPRemote{
		SOAPSessionService: connection.NewSOAPSessionService(caller, false),
		caller:             caller,
	}
}

// GetObjects implements Remote.
func (r *SOAPRemote) GetObjects(ctx context.Context, sessionID string, deviceID uint32, class string) ([]string, error) {
	var resp wire.GetObjectsResponse
	req := &wire.GetObjectsRequest{SessionID: sessionID, DeviceID: deviceID, Class: class}
	if err := r.caller.Call(ctx, wire.ActionGetObjects, req, &resp); err != nil {
		return nil, err
	}
	return resp.ObjectIDs, nil
}

// GetObjectCapability implements Remote.
func (r *SOAPRemote) GetObjectCapability(ctx context.Context, sessionID string, deviceID, objectID uint32) (*wire.ObjectCapability, error) {
	var resp wire.GetObjectCapabilityResponse
	req := &wire.GetObjectCapabilityRequest{
		SessionID: sessionID,
		DeviceID:  deviceID,
		ObjectID:  objectID,
		Scope:     wire.CapabilityScopeAll,
	}
	if err := r.caller.Call(ctx, wire.ActionGetObjectCapability, req, &resp); err != nil {
		return nil, err
	}
	return resp.Capability, nil
}

// GetObject implements Remote.
func (r *SOAPRemote) GetObject(ctx context.Context, sessionID string, deviceID, objectID uint32, fieldNames []string) (*wire.Object, error) {
	var resp wire.GetObjectResponse
	req := &wire.GetObjectRequest{
		SessionID:  sessionID,
		DeviceID:   deviceID,
		ObjectID:   objectID,
		FieldNames: fieldNames,
	}
	if err := r.caller.Call(ctx, wire.ActionGetObject, req, &resp); err != nil {
		return nil, err
	}
	return resp.Object, nil
}

// UpdateObject implements Remote.
func (r *SOAPRemote) UpdateObject(ctx context.Context, sessionID string, deviceID uint32, obj wire.Object, options wire.PropertyList) (wire.Status, error) {
	var resp wire.UpdateObjectResponse
	req := &wire.UpdateObjectRequest{
		SessionID: sessionID,
		DeviceID:  deviceID,
		Object:    obj,
		Options:   options,
	}
	if err := r.caller.Call(ctx, wire.ActionUpdateObject, req, &resp); err != nil {
		return "", err
	}
	return resp.ReturnValue, nil
}

var _ Remote = (*SOAPRemote)(nil)

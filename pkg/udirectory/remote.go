package udirectory

import (
	"context"

	"github.com/gheeres/ricoh-go/pkg/connection"
	"github.com/gheeres/ricoh-go/pkg/pagination"
	"github.com/gheeres/ricoh-go/pkg/transport"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// Remote is the user directory service stub.
type Remote interface {
	connection.SessionService
	pagination.Searcher

	GetObjectsProps(ctx context.Context, sessionID string, objectIDs, selectProps []string) ([]wire.Row, error)
	PutObjects(ctx context.Context, sessionID, class string, rows []wire.Row) ([]string, error)
	PutObjectProps(ctx context.Context, sessionID string, objectIDs []string, rows []wire.Row) (wire.Status, error)
	DeleteObjects(ctx context.Context, sessionID string, objectIDs []string) (uint32, error)
}

// SOAPRemote implements Remote over a SOAP caller.
type SOAPRemote struct {
	*connection.SOAPSessionService
	caller transport.Caller
}

// NewSOAPRemote creates a Remote. startSession carries the lock mode.
func NewSOAPRemote(caller transport.Caller) *SOAPRemote {
	return &SOAPRemote{
		SOAPSessionService: connection.NewSOAPSessionService(caller, true),
		caller:             caller,
	}
}

// SearchObjects implements Remote.
func (r *SOAPRemote) SearchObjects(ctx context.Context, req *wire.SearchObjectsRequest) (*wire.SearchObjectsResponse, error) {
	var resp wire.SearchObjectsResponse
	if err := r.caller.Call(ctx, wire.ActionSearchObjects, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetObjectsProps implements Remote.
func (r *SOAPRemote) GetObjectsProps(ctx context.Context, sessionID string, objectIDs, selectProps []string) ([]wire.Row, error) {
	var resp wire.GetObjectsPropsResponse
	req := &wire.GetObjectsPropsRequest{SessionID: sessionID, ObjectIDs: objectIDs, SelectProps: selectProps}
	if err := r.caller.Call(ctx, wire.ActionGetObjectsProps, req, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// PutObjects implements Remote.
func (r *SOAPRemote) PutObjects(ctx context.Context, sessionID, class string, rows []wire.Row) ([]string, error) {
	var resp wire.PutObjectsResponse
	req := &wire.PutObjectsRequest{SessionID: sessionID, ObjectClass: class, Rows: rows}
	if err := r.caller.Call(ctx, wire.ActionPutObjects, req, &resp); err != nil {
		return nil, err
	}
	return resp.ObjectIDs, nil
}

// PutObjectProps implements Remote.
func (r *SOAPRemote) PutObjectProps(ctx context.Context, sessionID string, objectIDs []string, rows []wire.Row) (wire.Status, error) {
	var resp wire.PutObjectPropsResponse
	req := &wire.PutObjectPropsRequest{SessionID: sessionID, ObjectIDs: objectIDs, Rows: rows}
	if err := r.caller.Call(ctx, wire.ActionPutObjectProps, req, &resp); err != nil {
		return "", err
	}
	return resp.ReturnValue, nil
}

// DeleteObjects implements Remote.
func (r *SOAPRemote) DeleteObjects(ctx context.Context, sessionID string, objectIDs []string) (uint32, error) {
	var resp wire.DeleteObjectsResponse
	req := &wire.DeleteObjectsRequest{SessionID: sessionID, ObjectIDs: objectIDs}
	if err := r.caller.Call(ctx, wire.ActionDeleteObjects, req, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

var _ Remote = (*SOAPRemote)(nil)

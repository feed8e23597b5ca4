package wire

// Service namespaces.
const (
	NamespaceDeviceManagement = "http://www.ricoh.co.jp/xmlns/soap/rdh/devicemanagement"
	NamespaceUDirectory       = "http://www.ricoh.co.jp/xmlns/soap/rdh/udirectory"
)

// Operation names shared by both services unless noted.
const (
	ActionStartSession         = "startSession"
	ActionTerminateSession     = "terminateSession"
	ActionGetServiceCapability = "getServiceCapability"

	// devicemanagement
	ActionGetObjects          = "getObjects"
	ActionGetObjectCapability = "getObjectCapability"
	ActionGetObject           = "getObject"
	ActionUpdateObject        = "updateObject"

	// udirectory
	ActionSearchObjects   = "searchObjects"
	ActionGetObjectsProps = "getObjectsProps"
	ActionPutObjects      = "putObjects"
	ActionPutObjectProps  = "putObjectProps"
	ActionDeleteObjects   = "deleteObjects"
)

// CapabilityScopeAll requests every field of an object capability.
const CapabilityScopeAll = "ALL"

// StartSessionRequest opens an authenticated session.
type StartSessionRequest struct {
	Auth      string `xml:"stringIn"`
	TimeLimit uint16 `xml:"timeLimit"`
	LockMode  string `xml:"lockMode,omitempty"`
}

// StartSessionResponse carries the session ID in StringOut.
type StartSessionResponse struct {
	ReturnValue Status `xml:"returnValue"`
	SessionID   string `xml:"stringOut"`
}

// TerminateSessionRequest closes a session.
type TerminateSessionRequest struct {
	SessionID string `xml:"sessionId"`
}

// TerminateSessionResponse acknowledges a terminated session.
type TerminateSessionResponse struct {
	ReturnValue Status `xml:"returnValue"`
}

// GetServiceCapabilityRequest asks for the service limits.
type GetServiceCapabilityRequest struct {
	SessionID string `xml:"sessionId"`
}

// GetServiceCapabilityResponse lists service limits as properties.
type GetServiceCapabilityResponse struct {
	Capabilities PropertyList `xml:"returnValue>item"`
}

// GetObjectsRequest lists the object IDs of a class.
type GetObjectsRequest struct {
	SessionID string `xml:"sessionId"`
	DeviceID  uint32 `xml:"deviceId"`
	Class     string `xml:"class"`
}

// GetObjectsResponse holds the object IDs as strings.
type GetObjectsResponse struct {
	ObjectIDs []string `xml:"returnValue>item"`
}

// GetObjectCapabilityRequest asks for the schema of one object.
type GetObjectCapabilityRequest struct {
	SessionID string `xml:"sessionId"`
	DeviceID  uint32 `xml:"deviceId"`
	ObjectID  uint32 `xml:"objectId"`
	Scope     string `xml:"capabilityType"`
}

// GetObjectCapabilityResponse holds the object schema.
type GetObjectCapabilityResponse struct {
	Capability *ObjectCapability `xml:"returnValue"`
}

// GetObjectRequest reads the named fields of one object.
type GetObjectRequest struct {
	SessionID  string   `xml:"sessionId"`
	DeviceID   uint32   `xml:"deviceId"`
	ObjectID   uint32   `xml:"objectId"`
	FieldNames []string `xml:"fieldNameList>item"`
}

// GetObjectResponse holds the object with its raw fields.
type GetObjectResponse struct {
	Object *Object `xml:"returnValue"`
}

// UpdateObjectRequest writes fields of one object.
type UpdateObjectRequest struct {
	SessionID string       `xml:"sessionId"`
	DeviceID  uint32       `xml:"deviceId"`
	Object    Object       `xml:"object"`
	Options   PropertyList `xml:"options>item"`
}

// UpdateObjectResponse reports the update status.
type UpdateObjectResponse struct {
	ReturnValue Status `xml:"returnValue"`
}

// SearchObjectsRequest reads one page of a directory class.
type SearchObjectsRequest struct {
	SessionID      string   `xml:"sessionId"`
	FromClass      string   `xml:"fromClass"`
	ParentObjectID uint32   `xml:"parentObjectId"`
	SelectProps    []string `xml:"selectProps>item"`
	RowOffset      uint32   `xml:"rowOffset"`
	RowCount       uint32   `xml:"rowCount"`
}

// SearchObjectsResponse is one page of search results.
type SearchObjectsResponse struct {
	ReturnValue Status `xml:"returnValue"`
	NumResults  uint32 `xml:"numOfResults"`
	Rows        []Row  `xml:"rowList>item"`
}

// GetObjectsPropsRequest reads properties of explicit object IDs
// ("entry:<id>").
type GetObjectsPropsRequest struct {
	SessionID   string       `xml:"sessionId"`
	ObjectIDs   []string     `xml:"objectIdList>item"`
	SelectProps []string     `xml:"selectProps>item"`
	Options     PropertyList `xml:"options>item,omitempty"`
}

// GetObjectsPropsResponse holds one row per requested object.
type GetObjectsPropsResponse struct {
	Rows []Row `xml:"returnValue>item"`
}

// PutObjectsRequest creates objects of a class.
type PutObjectsRequest struct {
	SessionID      string       `xml:"sessionId"`
	ObjectClass    string       `xml:"objectClass"`
	ParentObjectID string       `xml:"parentObjectId,omitempty"`
	Rows           []Row        `xml:"propListList>item"`
	Options        PropertyList `xml:"options>item,omitempty"`
}

// PutObjectsResponse holds the IDs of the created objects.
type PutObjectsResponse struct {
	ObjectIDs []string `xml:"returnValue>item"`
}

// PutObjectPropsRequest updates properties of existing objects.
type PutObjectPropsRequest struct {
	SessionID string       `xml:"sessionId"`
	ObjectIDs []string     `xml:"objectIdList>item"`
	Rows      []Row        `xml:"propListList>item"`
	Options   PropertyList `xml:"options>item,omitempty"`
}

// PutObjectPropsResponse reports the update status.
type PutObjectPropsResponse struct {
	ReturnValue Status `xml:"returnValue"`
}

// DeleteObjectsRequest removes objects by ID ("entry:<id>").
type DeleteObjectsRequest struct {
	SessionID string       `xml:"sessionId"`
	ObjectIDs []string     `xml:"objectIdList>item"`
	Options   PropertyList `xml:"options>item,omitempty"`
}

// DeleteObjectsResponse holds the number of deleted objects.
type DeleteObjectsResponse struct {
	Count uint32 `xml:"returnValue"`
}

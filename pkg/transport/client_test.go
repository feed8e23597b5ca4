package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gheeres/ricoh-go/pkg/log"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

type captureLog struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLog) Log(e log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureLog) byLayer(layer log.Layer, cat log.Category) []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []log.Event
	for _, e := range c.events {
		if e.Layer == layer && e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}

func respond(body string) string {
	return `<?xml version="1.0"?><soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` +
		body + `</soap:Body></soap:Envelope>`
}

const faultBody = `<soap:Fault><faultcode>soap:Server</faultcode><faultstring>duplicate</faultstring>` +
	`<detail><code>UDIRECTORY_DIRECTORY_INCONSISTENT</code></detail></soap:Fault>`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *captureLog) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	capture := &captureLog{}
	cfg := DefaultClientConfig(srv.URL, "udirectory")
	cfg.ProtocolLogger = capture
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c, capture
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://printer1/DH/devicemanagement", EndpointURL("printer1", "devicemanagement"))
	assert.Equal(t, "https://10.0.0.5:8443/DH/udirectory", EndpointURL("https://10.0.0.5:8443/", "udirectory"))
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig("p", "udirectory")
	assert.Equal(t, wire.NamespaceUDirectory, cfg.Namespace)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)

	cfg = DefaultClientConfig("p", "devicemanagement")
	assert.Equal(t, wire.NamespaceDeviceManagement, cfg.Namespace)
}

func TestNewClientInvalidEndpoint(t *testing.T) {
	_, err := NewClient(ClientConfig{Endpoint: "::nope"})
	assert.Error(t, err)
}

func TestCallSuccess(t *testing.T) {
	var gotAction, gotType, gotAgent, gotBody string
	c, capture := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAction = r.Header.Get("SOAPAction")
		gotAgent = r.Header.Get("User-Agent")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		io.WriteString(w, respond(`<ns:startSessionResponse xmlns:ns="x"><returnValue>OK</returnValue><stringOut>sid-42</stringOut></ns:startSessionResponse>`))
	})

	var resp wire.StartSessionResponse
	err := c.Call(context.Background(), wire.ActionStartSession, &wire.StartSessionRequest{Auth: "a", TimeLimit: 30, LockMode: "S"}, &resp)
	require.NoError(t, err)

	assert.Equal(t, "sid-42", resp.SessionID)
	assert.True(t, resp.ReturnValue.IsOK())
	assert.Equal(t, `"`+wire.NamespaceUDirectory+`#startSession"`, gotAction)
	assert.True(t, strings.HasPrefix(gotType, "text/xml"))
	assert.True(t, strings.HasPrefix(gotAgent, "ricohctl/"))
	assert.Contains(t, gotBody, "<rdh:startSession")

	msgs := capture.byLayer(log.LayerTransport, log.CategoryMessage)
	require.Len(t, msgs, 2)
	assert.Equal(t, log.DirectionOut, msgs[0].Direction)
	assert.Equal(t, log.DirectionIn, msgs[1].Direction)
	assert.Equal(t, msgs[0].ExchangeID, msgs[1].ExchangeID)
	assert.Equal(t, http.StatusOK, msgs[1].Message.HTTPStatus)
	assert.Equal(t, "startSession", msgs[1].Action)
}

func TestCallErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
		check     func(t *testing.T, err error)
	}{
		{
			name:      "not found",
			status:    http.StatusNotFound,
			transient: true,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEntryPointNotFound)
			},
		},
		{
			name:      "server error without fault",
			status:    http.StatusServiceUnavailable,
			body:      "busy",
			transient: true,
			check: func(t *testing.T, err error) {
				var ce *CommunicationError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, http.StatusServiceUnavailable, ce.StatusCode)
			},
		},
		{
			name:   "fault",
			status: http.StatusInternalServerError,
			body:   respond(faultBody),
			check: func(t *testing.T, err error) {
				assert.True(t, wire.IsFault(err, wire.StatusDirectoryInconsistent))
			},
		},
		{
			name:   "malformed",
			status: http.StatusOK,
			body:   "<html>login</html>",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
		{
			name:   "unexpected status",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnexpectedStatus)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			err := c.Call(context.Background(), wire.ActionTerminateSession, &wire.TerminateSessionRequest{SessionID: "s"}, &wire.TerminateSessionResponse{})
			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))
			tt.check(t, err)
		})
	}
}

func TestCallUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c, err := NewClient(ClientConfig{Endpoint: endpoint + "/DH/udirectory", Namespace: wire.NamespaceUDirectory})
	require.NoError(t, err)

	err = c.Call(context.Background(), wire.ActionStartSession, &wire.StartSessionRequest{}, &wire.StartSessionResponse{})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestCallTimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	cfg := DefaultClientConfig(srv.URL, "devicemanagement")
	cfg.Timeout = 50 * time.Millisecond
	c, err := NewClient(cfg)
	require.NoError(t, err)

	err = c.Call(context.Background(), wire.ActionGetObjects, &wire.GetObjectsRequest{}, &wire.GetObjectsResponse{})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestCallCanceledIsNotTransient(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, respond(`<x/>`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Call(ctx, wire.ActionGetObjects, &wire.GetObjectsRequest{}, &wire.GetObjectsResponse{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsTransient(err))
}

func TestDoNormalizesMultiRef(t *testing.T) {
	var received string
	c, capture := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		received = string(b)
		io.WriteString(w, respond(`<deleteObjectsResponse><returnValue>1</returnValue></deleteObjectsResponse>`))
	})

	env := `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>` +
		`<deleteObjects><sessionId>s</sessionId><objectIdList href="#id1"/></deleteObjects>` +
		`<Array id="id1"><item>entry:5</item></Array></s:Body></s:Envelope>`

	out, err := c.Do(context.Background(), wire.ActionDeleteObjects, []byte(env))
	require.NoError(t, err)
	assert.Contains(t, string(out), "deleteObjectsResponse")

	assert.NotContains(t, received, "href")
	assert.Contains(t, received, `<objectIdList><item>entry:5</item></objectIdList>`)
	assert.Len(t, capture.byLayer(log.LayerEnvelope, log.CategoryMessage), 1)
}

func TestDoRejectsUnresolvableEnvelope(t *testing.T) {
	called := false
	c, capture := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	env := `<s:Envelope xmlns:s="urn:s"><s:Body><op/><stray id="9"/></s:Body></s:Envelope>`
	_, err := c.Do(context.Background(), "op", []byte(env))
	require.Error(t, err)
	assert.False(t, called)
	assert.False(t, IsTransient(err))
	assert.Len(t, capture.byLayer(log.LayerEnvelope, log.CategoryError), 1)
}

func TestDoReturnsFaultWithBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, respond(faultBody))
	})

	out, err := c.Do(context.Background(), "putObjects", []byte(`<s:Envelope xmlns:s="urn:s"><s:Body><putObjects/></s:Body></s:Envelope>`))
	assert.True(t, wire.IsFault(err, ""))
	assert.Contains(t, string(out), "Fault")
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("x")))
	assert.False(t, IsTransient(&wire.Fault{Code: "soap:Server"}))
	assert.True(t, IsTransient(&CommunicationError{Err: io.ErrUnexpectedEOF}))
	assert.True(t, IsTransient(ErrEntryPointNotFound))
}

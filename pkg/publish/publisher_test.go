package publish

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gheeres/ricoh-go/pkg/devicemanagement"
	"github.com/gheeres/ricoh-go/pkg/discovery"
	"github.com/gheeres/ricoh-go/pkg/model"
	"github.com/gheeres/ricoh-go/pkg/persistence"
	"github.com/gheeres/ricoh-go/pkg/udirectory"
)

type fakeToken struct {
	mqtt.Token
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }

type message struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	messages     []message
	err          error
	timeout      bool
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message{topic: topic, qos: qos, retain: retained, payload: payload.([]byte)})
	return &fakeToken{err: c.err, timeout: c.timeout}
}

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
}

func (c *fakeClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.topic
	}
	return out
}

func newTestPublisher(t *testing.T) (*Publisher, *fakeClient, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := DefaultConfig("tcp://broker:1883")
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := &fakeClient{}
	return New(client, cfg), client, &buf
}

func userCounter(index uint32, user string, copies uint32) *model.UserCounter {
	return &model.UserCounter{Object: model.Object{
		ID:             model.BaseUserCounter*10 + index,
		Base:           model.BaseUserCounter,
		Authentication: user,
		Username:       "User " + user,
		Fields:         model.Fields{model.UintField("copyBlack", copies, model.AccessReadWrite)},
	}}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("tcp://b:1883")
	assert.Equal(t, DefaultTopicPrefix, cfg.TopicPrefix)
	assert.Equal(t, byte(1), cfg.QoS)
	assert.True(t, cfg.Retain)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
}

func TestConnectRequiresBroker(t *testing.T) {
	_, err := Connect(Config{})
	assert.Error(t, err)
}

func TestTopic(t *testing.T) {
	p, _, _ := newTestPublisher(t)
	assert.Equal(t, "ricoh/10.0.0.5/counters", p.Topic("10.0.0.5", "counters"))
	assert.Equal(t, "ricoh/a_b_c_/events", p.Topic("a/b+c#", "events"))
}

func TestPublishSnapshot(t *testing.T) {
	p, client, _ := newTestPublisher(t)
	snap := persistence.NewSnapshot("printer1", time.Now(), []*model.UserCounter{
		userCounter(2, "bob", 4),
		userCounter(1, "ann", 9),
	})

	require.NoError(t, p.PublishSnapshot(snap))
	assert.Equal(t, []string{
		"ricoh/printer1/counters",
		"ricoh/printer1/counters/1",
		"ricoh/printer1/counters/2",
	}, client.topics())

	first := client.messages[0]
	assert.True(t, first.retain)
	assert.Equal(t, byte(1), first.qos)

	var decoded persistence.Snapshot
	require.NoError(t, json.Unmarshal(first.payload, &decoded))
	assert.Equal(t, "printer1", decoded.Host)
	require.Len(t, decoded.Users, 2)

	var user persistence.UserCounters
	require.NoError(t, json.Unmarshal(client.messages[1].payload, &user))
	assert.Equal(t, "ann", user.Authentication)
	assert.Equal(t, uint32(9), user.Counters["copyBlack"])
}

func TestPublishErrors(t *testing.T) {
	p, client, _ := newTestPublisher(t)
	client.err = errors.New("not connected")
	err := p.PublishUsage("p", nil)
	assert.ErrorContains(t, err, "not connected")

	client.err = nil
	client.timeout = true
	err = p.PublishUsage("p", nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPublishUsage(t *testing.T) {
	p, client, _ := newTestPublisher(t)
	prev := persistence.NewSnapshot("p", time.Now().Add(-time.Hour), []*model.UserCounter{userCounter(1, "ann", 2)})
	cur := persistence.NewSnapshot("p", time.Now(), []*model.UserCounter{userCounter(1, "ann", 5)})

	require.NoError(t, p.PublishUsage("p", persistence.Diff(prev, cur)))
	require.Len(t, client.messages, 1)
	assert.Equal(t, "ricoh/p/usage", client.messages[0].topic)
	assert.False(t, client.messages[0].retain)

	var deltas []persistence.Delta
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &deltas))
	assert.Equal(t, uint32(3), deltas[0].Counters["copyBlack"])
}

func TestDeviceManagementHandler(t *testing.T) {
	p, client, _ := newTestPublisher(t)
	handler := p.DeviceManagementHandler()

	handler(devicemanagement.Event{
		Type:     devicemanagement.EventCounterReset,
		Host:     "p",
		ObjectID: 1110021,
		Counter:  userCounter(1, "ann", 0),
	})
	handler(devicemanagement.Event{
		Type:  devicemanagement.EventObjectFailed,
		Host:  "p",
		Error: errors.New("boom"),
	})

	assert.Equal(t, []string{"ricoh/p/events/counter_reset", "ricoh/p/events/object_failed"}, client.topics())

	var msg EventMessage
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &msg))
	assert.Equal(t, "COUNTER_RESET", msg.Type)
	assert.Equal(t, uint32(1), msg.Index)
	assert.Equal(t, "ann", msg.User)

	require.NoError(t, json.Unmarshal(client.messages[1].payload, &msg))
	assert.Equal(t, "boom", msg.Error)
}

func TestAccessControlChangedEvent(t *testing.T) {
	p, client, _ := newTestPublisher(t)
	ac := &model.UserAccessControl{Object: model.Object{
		ID:             1100023,
		Base:           model.BaseUserRestrict,
		Authentication: "cid",
		Fields:         model.Fields{model.BoolField("copyColor", true, model.AccessReadWrite)},
	}}

	p.DeviceManagementHandler()(devicemanagement.Event{
		Type:          devicemanagement.EventAccessControlChanged,
		Host:          "p",
		AccessControl: ac,
		Category:      model.CategoryCopier,
	})

	var msg EventMessage
	require.Len(t, client.messages, 1)
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &msg))
	assert.Equal(t, uint32(3), msg.Index)
	assert.Equal(t, model.CategoryCopier.String(), msg.Category)
}

func TestDirectoryHandler(t *testing.T) {
	p, client, _ := newTestPublisher(t)
	entry := model.NewAddressBookEntry(model.EntryTypeUser)
	entry.SetID(12)
	entry.SetUsercode("4711")
	entry.SetDisplayName("Jane")

	p.DirectoryHandler()(udirectory.Event{Type: udirectory.EventEntryAdded, Host: "p", ID: 12, Entry: entry})

	require.Len(t, client.messages, 1)
	assert.Equal(t, "ricoh/p/events/entry_added", client.messages[0].topic)

	var msg EventMessage
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &msg))
	assert.Equal(t, "4711", msg.User)
	assert.Equal(t, "Jane", msg.Name)
	assert.Equal(t, "4711", msg.Entry[model.PropUsercode])
}

func TestEventPublishFailureIsLogged(t *testing.T) {
	p, client, buf := newTestPublisher(t)
	client.err = errors.New("down")

	p.DirectoryHandler()(udirectory.Event{Type: udirectory.EventEntryRemoved, Host: "p", ID: 3})
	assert.Contains(t, buf.String(), "event not published")
}

func TestPublishPrinters(t *testing.T) {
	p, client, _ := newTestPublisher(t)
	printers := []*discovery.Printer{{
		InstanceName: "RICOH IM C3000",
		Manufacturer: "RICOH",
		Addresses:    []string{net.ParseIP("10.0.0.20").String()},
	}}

	require.NoError(t, p.PublishPrinters(printers))
	require.Len(t, client.messages, 1)
	assert.Equal(t, "ricoh/discovery", client.messages[0].topic)
	assert.Contains(t, string(client.messages[0].payload), `"address":"10.0.0.20"`)
	assert.Contains(t, string(client.messages[0].payload), `"ricoh":true`)
}

func TestClose(t *testing.T) {
	p, client, _ := newTestPublisher(t)
	p.Close()
	assert.True(t, client.disconnected)
}

package publish

import (
	"strings"
	"time"

	"github.com/gheeres/ricoh-go/pkg/devicemanagement"
	"github.com/gheeres/ricoh-go/pkg/discovery"
	"github.com/gheeres/ricoh-go/pkg/udirectory"
)

// EventMessage is the payload of an event topic.
type EventMessage struct {
	Type     string    `json:"type"`
	Host     string    `json:"host"`
	Time     time.Time `json:"time"`
	ObjectID uint32    `json:"object_id,omitempty"`
	Index    uint32    `json:"index,omitempty"`
	User     string    `json:"user,omitempty"`
	Name     string    `json:"name,omitempty"`

	// Allowed lists the categories a user may use (access control events).
	Allowed  string `json:"allowed,omitempty"`
	Category string `json:"category,omitempty"`

	// Entry holds the address book properties (directory events).
	Entry map[string]string `json:"entry,omitempty"`

	Error string `json:"error,omitempty"`
}

// DeviceManagementHandler returns a handler publishing device management
// events. Publish failures are logged.
func (p *Publisher) DeviceManagementHandler() devicemanagement.EventHandler {
	return func(e devicemanagement.Event) {
		msg := EventMessage{
			Type:     e.Type.String(),
			Host:     e.Host,
			Time:     time.Now(),
			ObjectID: e.ObjectID,
		}
		switch {
		case e.Counter != nil:
			msg.Index = e.Counter.Index()
			msg.User = e.Counter.Authentication
			msg.Name = e.Counter.Username
		case e.AccessControl != nil:
			msg.Index = e.AccessControl.Index()
			msg.User = e.AccessControl.Authentication
			msg.Name = e.AccessControl.Username
			msg.Allowed = e.AccessControl.Allowed().String()
		}
		if e.Type == devicemanagement.EventAccessControlChanged {
			msg.Category = e.Category.String()
		}
		if e.Error != nil {
			msg.Error = e.Error.Error()
		}
		p.publishEvent(msg)
	}
}

// DirectoryHandler returns a handler publishing address book events.
// Publish failures are logged.
func (p *Publisher) DirectoryHandler() udirectory.EventHandler {
	return func(e udirectory.Event) {
		msg := EventMessage{
			Type:     e.Type.String(),
			Host:     e.Host,
			Time:     time.Now(),
			ObjectID: e.ID,
		}
		if e.Entry != nil {
			msg.User = e.Entry.Usercode()
			msg.Name = e.Entry.DisplayName()
			msg.Entry = e.Entry.Map()
		}
		if e.Error != nil {
			msg.Error = e.Error.Error()
		}
		p.publishEvent(msg)
	}
}

// PublishPrinters publishes discovered printers.
func (p *Publisher) PublishPrinters(printers []*discovery.Printer) error {
	type printer struct {
		Instance  string   `json:"instance"`
		Address   string   `json:"address"`
		Model     string   `json:"model,omitempty"`
		Location  string   `json:"location,omitempty"`
		Addresses []string `json:"addresses,omitempty"`
		Ricoh     bool     `json:"ricoh"`
	}
	out := make([]printer, 0, len(printers))
	for _, pr := range printers {
		out = append(out, printer{
			Instance:  pr.InstanceName,
			Address:   pr.Address(),
			Model:     pr.Model,
			Location:  pr.Location,
			Addresses: pr.Addresses,
			Ricoh:     pr.IsRicoh(),
		})
	}
	return p.publish(p.Topic("discovery"), p.config.Retain, out)
}

func (p *Publisher) publishEvent(msg EventMessage) {
	topic := p.Topic(msg.Host, "events", strings.ToLower(msg.Type))
	if err := p.publish(topic, false, msg); err != nil {
		p.logger.Warn("event not published", "topic", topic, "error", err)
	}
}

package protocol

import (
	"sort"

	"github.com/vango-dev/domsync/pkg/host"
)

// MaxDetailEntries bounds the Detail map of an event.
const MaxDetailEntries = 64

// EventMessage is a native event forwarded by a client. Target is the node
// the event was fired at; delegated listeners on the mount container are
// resolved on the server side.
type EventMessage struct {
	Seq     uint64
	Type    string
	Target  NodeID
	Value   string
	Key     string
	Checked bool
	Detail  map[string]string
}

// HostEvent converts the message to a host event fired at target, the
// handle the receiving document uses for m.Target.
func (m *EventMessage) HostEvent(target host.Node) host.Event {
	return host.Event{
		Type:    m.Type,
		Target:  target,
		Value:   m.Value,
		Key:     m.Key,
		Checked: m.Checked,
		Detail:  m.Detail,
	}
}

// EncodeEvent encodes an event message.
func EncodeEvent(m *EventMessage) []byte {
	e := NewEncoder()
	EncodeEventTo(e, m)
	return e.Bytes()
}

// EncodeEventTo encodes an event message into e. Detail entries are
// written sorted by key.
func EncodeEventTo(e *Encoder, m *EventMessage) {
	e.WriteUvarint(m.Seq)
	e.WriteString(m.Type)
	e.WriteUvarint(uint64(m.Target))
	e.WriteString(m.Value)
	e.WriteString(m.Key)
	e.WriteBool(m.Checked)

	keys := make([]string, 0, len(m.Detail))
	for k := range m.Detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	e.WriteUvarint(uint64(len(keys)))
	for _, k := range keys {
		e.WriteString(k)
		e.WriteString(m.Detail[k])
	}
}

// DecodeEvent decodes an event message.
func DecodeEvent(data []byte) (*EventMessage, error) {
	d := NewDecoder(data)
	m, err := decodeEvent(d)
	if err == nil {
		err = d.finish()
	}
	if err != nil {
		return nil, malformed(err, "event")
	}
	return m, nil
}

func decodeEvent(d *Decoder) (*EventMessage, error) {
	m := &EventMessage{}
	var err error
	if m.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if m.Type, err = d.ReadString(); err != nil {
		return nil, err
	}
	if m.Target, err = readNodeID(d); err != nil {
		return nil, err
	}
	if m.Value, err = d.ReadString(); err != nil {
		return nil, err
	}
	if m.Key, err = d.ReadString(); err != nil {
		return nil, err
	}
	if m.Checked, err = d.ReadBool(); err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	if count > MaxDetailEntries {
		return nil, ErrCollectionTooLarge
	}
	if count > 0 {
		m.Detail = make(map[string]string, count)
	}
	for i := 0; i < count; i++ {
		k, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		m.Detail[k] = v
	}
	return m, nil
}

package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/somnolab/somno/pkg/daemon/store"
	"github.com/somnolab/somno/pkg/somno/logging"
	"github.com/somnolab/somno/pkg/somno/types"
)

// RecordTopicPrefix is the topic space trackers publish sleep records to.
// Devices publish to somno/records/<device-id>.
const RecordTopicPrefix = "somno/records/"

// Broker is an embedded MQTT broker that accepts sleep records from
// tracker devices.
type Broker struct {
	server *mqtt.Server
	addr   string
}

// NewBroker creates the embedded broker listening on addr.
func NewBroker(s *store.Store, addr string) (*Broker, error) {
	server := mqtt.New(nil)

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("failed to add auth hook: %w", err)
	}
	if err := server.AddHook(&recordHook{store: s}, nil); err != nil {
		return nil, fmt.Errorf("failed to add record hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{
		ID:      "somno-tcp",
		Address: addr,
	})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("failed to add listener: %w", err)
	}

	return &Broker{server: server, addr: addr}, nil
}

// Addr returns the configured listen address.
func (b *Broker) Addr() string {
	return b.addr
}

// Serve starts the broker. It blocks until the broker is closed.
func (b *Broker) Serve() error {
	return b.server.Serve()
}

// Close shuts the broker down.
func (b *Broker) Close() error {
	return b.server.Close()
}

// recordHook stores sleep records published under the record topic space.
type recordHook struct {
	mqtt.HookBase
	store *store.Store
}

func (h *recordHook) ID() string {
	return "somno-records"
}

func (h *recordHook) Provides(b byte) bool {
	return bytes.Contains([]byte{mqtt.OnPublish}, []byte{b})
}

func (h *recordHook) OnPublish(cl *mqtt.Client, pk packets.Packet) (packets.Packet, error) {
	if err := h.ingestPayload(pk.TopicName, pk.Payload); err != nil {
		logging.Get("ingest").Warn("rejecting mqtt payload",
			"client", cl.ID, "topic", pk.TopicName, "error", err)
	}
	return pk, nil
}

// ingestPayload decodes a record payload and stores it. The payload is a
// JSON object for a single record or a JSON array for a batch.
func (h *recordHook) ingestPayload(topic string, payload []byte) error {
	if !strings.HasPrefix(topic, RecordTopicPrefix) {
		return nil
	}
	device := strings.TrimPrefix(topic, RecordTopicPrefix)
	if device == "" {
		return fmt.Errorf("missing device id in topic %q", topic)
	}

	records, err := decodeRecords(payload)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].Date.IsZero() {
			return fmt.Errorf("record without date from device %q", device)
		}
		records[i].Weekday = records[i].Date.Weekday()
	}

	if err := h.store.PutRecordBatch(records); err != nil {
		return fmt.Errorf("failed to store records: %w", err)
	}
	if _, err := h.store.RefreshDataMeta(); err != nil {
		logging.Get("ingest").Warn("failed to refresh counts", "error", err)
	}

	logging.Get("ingest").Info("ingested mqtt records", "device", device, "records", len(records))
	return nil
}

// decodeRecords accepts either a bare record object or an array of them.
func decodeRecords(payload []byte) ([]types.SleepRecord, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	if trimmed[0] == '[' {
		var records []types.SleepRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("invalid record batch: %w", err)
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("empty record batch")
		}
		return records, nil
	}

	var record types.SleepRecord
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	return []types.SleepRecord{record}, nil
}

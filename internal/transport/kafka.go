package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/FleetDeck/FleetDeck/internal/bus"
)

// Topics names the kafka topics the console talks on.
type Topics struct {
	FleetStates   string `json:"fleetStates"`
	TaskSummaries string `json:"taskSummaries"`
	Deliveries    string `json:"deliveries"`
	Loops         string `json:"loops"`
	ModeRequests  string `json:"modeRequests"`
}

// DefaultTopics returns the conventional topic names.
func DefaultTopics() Topics {
	return Topics{
		FleetStates:   "fleet_states",
		TaskSummaries: "task_summaries",
		Deliveries:    "delivery_requests",
		Loops:         "loop_requests",
		ModeRequests:  "mode_requests",
	}
}

// KafkaTransport implements Transport using segmentio/kafka-go: one reader
// per inbound topic, one shared writer for outbound requests.
type KafkaTransport struct {
	brokers       string
	consumerGroup string
	topics        Topics
	bus           *bus.MessageBus

	mu      sync.Mutex
	readers []*kafka.Reader
	writer  *kafka.Writer
}

// NewKafkaTransport creates a kafka transport. brokers is a comma-separated
// list of bootstrap addresses.
func NewKafkaTransport(brokers, consumerGroup string, topics Topics, b *bus.MessageBus) *KafkaTransport {
	return &KafkaTransport{
		brokers:       brokers,
		consumerGroup: consumerGroup,
		topics:        topics,
		bus:           b,
	}
}

// Name returns "kafka".
func (t *KafkaTransport) Name() string { return "kafka" }

// Start begins consuming the inbound state topics.
func (t *KafkaTransport) Start(ctx context.Context) error {
	brokerList := strings.Split(t.brokers, ",")

	t.mu.Lock()
	t.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
	}
	t.mu.Unlock()

	t.startReader(ctx, brokerList, t.topics.FleetStates, bus.KindFleetState)
	t.startReader(ctx, brokerList, t.topics.TaskSummaries, bus.KindTaskSummary)
	return nil
}

func (t *KafkaTransport) startReader(ctx context.Context, brokerList []string, topic, kind string) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokerList,
		Topic:    topic,
		GroupID:  t.consumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	t.mu.Lock()
	t.readers = append(t.readers, reader)
	t.mu.Unlock()

	go func() {
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("KafkaTransport: read error", "topic", topic, "error", err)
				continue
			}
			inbound, err := decodeInbound(kind, msg.Value)
			if err != nil {
				slog.Warn("KafkaTransport: dropping malformed message", "topic", topic, "error", err)
				continue
			}
			t.bus.PublishInbound(inbound)
		}
	}()
}

// decodeInbound parses a topic payload into a typed inbound message.
func decodeInbound(kind string, value []byte) (*bus.InboundMessage, error) {
	switch kind {
	case bus.KindFleetState:
		var fs bus.FleetState
		if err := json.Unmarshal(value, &fs); err != nil {
			return nil, fmt.Errorf("decode fleet state: %w", err)
		}
		if fs.Name == "" {
			return nil, fmt.Errorf("fleet state without a fleet name")
		}
		return &bus.InboundMessage{Kind: bus.KindFleetState, FleetState: &fs}, nil
	case bus.KindTaskSummary:
		var ts bus.TaskSummary
		if err := json.Unmarshal(value, &ts); err != nil {
			return nil, fmt.Errorf("decode task summary: %w", err)
		}
		if ts.TaskID == "" {
			return nil, fmt.Errorf("task summary without a task id")
		}
		return &bus.InboundMessage{Kind: bus.KindTaskSummary, TaskSummary: &ts}, nil
	default:
		return nil, fmt.Errorf("unknown inbound kind %q", kind)
	}
}

// topicFor maps an outbound kind to its topic.
func (t *KafkaTransport) topicFor(kind string) (string, error) {
	switch kind {
	case bus.KindDelivery:
		return t.topics.Deliveries, nil
	case bus.KindLoop:
		return t.topics.Loops, nil
	case bus.KindModeRequest:
		return t.topics.ModeRequests, nil
	default:
		return "", fmt.Errorf("unknown outbound kind %q", kind)
	}
}

// Publish writes one outbound request to its topic.
func (t *KafkaTransport) Publish(ctx context.Context, msg *bus.OutboundMessage) error {
	topic, err := t.topicFor(msg.Kind)
	if err != nil {
		return err
	}
	value, err := encodeOutbound(msg)
	if err != nil {
		return err
	}

	t.mu.Lock()
	w := t.writer
	t.mu.Unlock()
	if w == nil {
		return fmt.Errorf("kafka transport not started")
	}

	return w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(msg.Kind),
		Value: value,
		Time:  time.Now(),
	})
}

// encodeOutbound serializes the payload struct, not the envelope: consumers
// on each topic expect the bare request message.
func encodeOutbound(msg *bus.OutboundMessage) ([]byte, error) {
	switch msg.Kind {
	case bus.KindDelivery:
		return json.Marshal(msg.Delivery)
	case bus.KindLoop:
		return json.Marshal(msg.Loop)
	case bus.KindModeRequest:
		return json.Marshal(msg.ModeRequest)
	default:
		return nil, fmt.Errorf("unknown outbound kind %q", msg.Kind)
	}
}

// Stop closes all readers and the writer.
func (t *KafkaTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.readers {
		_ = r.Close()
	}
	t.readers = nil
	if t.writer != nil {
		_ = t.writer.Close()
		t.writer = nil
	}
	return nil
}

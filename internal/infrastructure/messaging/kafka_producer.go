package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/traslados-api/internal/application/transfer"
)

var _ transfer.EventPublisher = (*KafkaProducer)(nil)

// publishTimeout espera máxima por evento; el workflow publica después del commit y no debe bloquearse.
const publishTimeout = 5 * time.Second

// messageWriter lo que se usa de *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publica eventos de traslado. La clave del mensaje es el ID del traslado,
// así todos los eventos de un traslado caen en la misma partición y conservan su orden.
type KafkaProducer struct {
	writer messageWriter
}

// NewKafkaProducer construye el productor sobre los brokers y tópico dados.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}}
}

// PublishTransferEvent serializa el evento a JSON y lo escribe en el tópico.
func (p *KafkaProducer) PublishTransferEvent(ctx context.Context, event transfer.TransferEvent) error {
	msg, err := buildMessage(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: escribir evento %s: %w", event.Type, err)
	}
	return nil
}

// Close vacía el buffer pendiente y cierra las conexiones.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

func buildMessage(event transfer.TransferEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: serializar evento: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.TransferID),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}

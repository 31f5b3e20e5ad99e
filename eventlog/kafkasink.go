// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package eventlog

import (
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"

	"github.com/ai4all-network/coordinator/internal/xerrors"
)

// KafkaSink mirrors appended DomainEvents onto a Kafka topic for
// downstream consumers (analytics, external auditors), grounded on the
// teacher's datasync/chaindatafetcher/event/kafka broker: an async
// producer with snappy compression and a bounded flush interval, one
// topic per stream rather than one per event type.
type KafkaSink struct {
	producer sarama.AsyncProducer
	topic    string
}

// NewKafkaSink dials brokers and returns a sink publishing to topic.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Flush.Frequency = 500 * time.Millisecond
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "eventlog.NewKafkaSink", err)
	}

	sink := &KafkaSink{producer: producer, topic: topic}
	go sink.drainErrors()
	return sink, nil
}

func (k *KafkaSink) drainErrors() {
	for perr := range k.producer.Errors() {
		logger.Warn("kafka event mirror failed", "topic", k.topic, "err", perr.Err)
	}
}

// Publish mirrors a single event, keyed by dayId so a consumer's
// partition assignment keeps one day's events ordered.
func (k *KafkaSink) Publish(ev DomainEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return xerrors.Wrap(xerrors.InvalidInput, "eventlog.KafkaSink.Publish", err)
	}
	k.producer.Input() <- &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.DayID),
		Value: sarama.ByteEncoder(data),
	}
	return nil
}

// PublishBurst mirrors an ordered event slice in order.
func (k *KafkaSink) PublishBurst(events []DomainEvent) error {
	for _, ev := range events {
		if err := k.Publish(ev); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts the underlying producer down.
func (k *KafkaSink) Close() error {
	return k.producer.Close()
}

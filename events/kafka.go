package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ronnedahl/video-app-date/jobs"
)

var log = logrus.NewEntry(logrus.StandardLogger())

func Init(logger *logrus.Logger) error {
	log = logger.WithFields(logrus.Fields{
		"component": "events",
	})
	return nil
}

// Message is the payload published for every finished job.
type Message struct {
	VideoID        string      `json:"videoId"`
	Status         jobs.Status `json:"status"`
	CompressedFile string      `json:"compressedFile,omitempty"`
	CompressedSize int64       `json:"compressedSize,omitempty"`
	Error          string      `json:"error,omitempty"`
	FinishedAt     time.Time   `json:"finishedAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends job outcomes to a kafka topic keyed by job id.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *Publisher) JobFinished(ctx context.Context, job jobs.Job) error {
	msg := Message{
		VideoID:        job.ID,
		Status:         job.Status,
		CompressedFile: job.CompressedFile,
		CompressedSize: job.CompressedSize,
		Error:          job.Error,
		FinishedAt:     time.Now().UTC(),
	}
	if job.CompletedAt != nil {
		msg.FinishedAt = *job.CompletedAt
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.ID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", job.ID, err)
	}
	log.Debugf("published %s event for %s", job.Status, job.ID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// DefaultQueueName is the default queue name
	DefaultQueueName = "chore_sweep_jobs"
	// DefaultDLQName is the default dead letter queue name
	DefaultDLQName = "chore_sweep_jobs_dlq"
	// DefaultExchangeName is the default exchange name
	DefaultExchangeName = "chore_jobs"

	jobsRoutingKey = "jobs"
	dlqRoutingKey  = "dlq"
)

// RabbitMQQueue implements JobQueue using RabbitMQ
type RabbitMQQueue struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	queueName    string
	dlqName      string
	exchangeName string
	logger       *zap.Logger
	now          func() time.Time
}

// NewRabbitMQQueue connects to RabbitMQ and declares the exchange and queues
func NewRabbitMQQueue(amqpURL string, logger *zap.Logger) (*RabbitMQQueue, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &RabbitMQQueue{
		conn:         conn,
		channel:      ch,
		queueName:    DefaultQueueName,
		dlqName:      DefaultDLQName,
		exchangeName: DefaultExchangeName,
		logger:       logger,
		now:          time.Now,
	}

	if err := q.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return q, nil
}

// ConnectWithRetry dials RabbitMQ with exponential backoff to ride out broker startup
func ConnectWithRetry(ctx context.Context, amqpURL string, maxRetries int, initialDelay time.Duration, logger *zap.Logger) (*RabbitMQQueue, error) {
	var lastErr error
	delay := initialDelay
	for attempt := 1; attempt <= maxRetries; attempt++ {
		q, err := NewRabbitMQQueue(amqpURL, logger)
		if err == nil {
			return q, nil
		}
		lastErr = err
		logger.Warn("rabbitmq_connection_failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, lastErr)
}

// setup configures the exchange, the main queue and its dead letter queue
func (q *RabbitMQQueue) setup() error {
	err := q.channel.ExchangeDeclare(
		q.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		q.dlqName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}
	if err := q.channel.QueueBind(q.dlqName, dlqRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	queueArgs := amqp.Table{
		"x-dead-letter-exchange":    q.exchangeName,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	_, err = q.channel.QueueDeclare(
		q.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		queueArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := q.channel.QueueBind(q.queueName, jobsRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	return nil
}

// Enqueue adds a job to the queue
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	publishing, err := buildPublishing(job, q.now())
	if err != nil {
		return err
	}

	err = q.channel.PublishWithContext(
		ctx,
		q.exchangeName,
		jobsRoutingKey,
		false, // mandatory
		false, // immediate
		publishing,
	)
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

// buildPublishing encodes a job. NotAfter becomes a per-message TTL so that
// the broker drops stale sweeps on its own.
func buildPublishing(job *Job, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal job: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    job.CreatedAt,
		Type:         string(job.Type),
	}
	if job.NotAfter != nil {
		ttl := job.NotAfter.Sub(now)
		if ttl <= 0 {
			return amqp.Publishing{}, fmt.Errorf("job %s already expired", job.ID)
		}
		publishing.Expiration = strconv.FormatInt(ttl.Milliseconds(), 10)
	}
	return publishing, nil
}

// decodeDelivery parses a delivery body. Expired jobs return ok=false.
func decodeDelivery(body []byte, now time.Time) (*Job, bool, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.IsExpired(now) {
		return &job, false, nil
	}
	return &job, true, nil
}

// Consume returns a channel of messages from the queue using async delivery
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	// Consumers get their own channel so that publishing is not blocked by deliveries.
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(
		q.queueName,
		"",    // consumer tag (empty = auto-generate)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan *Message, max(prefetchCount, 1))
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		defer func() {
			_ = consumeCh.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					errChan <- errors.New("delivery channel closed")
					return
				}

				job, fresh, err := decodeDelivery(delivery.Body, q.now())
				if err != nil {
					// Undecodable messages go to the DLQ
					_ = delivery.Nack(false, false)
					q.logger.Warn("invalid_job_message", zap.Error(err))
					continue
				}
				if !fresh {
					_ = delivery.Ack(false)
					q.logger.Debug("expired_job_dropped", zap.String("job_id", job.ID.String()))
					continue
				}

				msg := &Message{
					Job:         job,
					DeliveryTag: delivery.DeliveryTag,
					Channel:     consumeCh,
				}
				select {
				case <-ctx.Done():
					_ = delivery.Nack(false, true)
					return
				case msgChan <- msg:
				}
			}
		}
	}()

	return msgChan, errChan, nil
}

// PurgeDeadLetters drops every message in the dead letter queue
func (q *RabbitMQQueue) PurgeDeadLetters(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := q.channel.QueuePurge(q.dlqName, false)
	if err != nil {
		return 0, fmt.Errorf("failed to purge DLQ: %w", err)
	}
	return n, nil
}

// HealthCheck verifies the connection and publishing channel are open
func (q *RabbitMQQueue) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.conn == nil || q.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	if q.channel == nil || q.channel.IsClosed() {
		return errors.New("rabbitmq channel is closed")
	}
	return nil
}

// Close closes the queue connection
func (q *RabbitMQQueue) Close() error {
	var err error
	if q.channel != nil {
		err = q.channel.Close()
	}
	if q.conn != nil {
		if closeErr := q.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

var _ JobQueue = (*RabbitMQQueue)(nil)

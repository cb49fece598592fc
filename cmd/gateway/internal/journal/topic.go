package journal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/pkg/config"
)

var ErrTopicNotReady = errors.New("topic not ready")

// TopicSpec describes the order journal topic.
type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationFactor int
}

func TopicSpecFrom(cfg config.KafkaConfig) TopicSpec {
	return TopicSpec{Name: cfg.Topic, Partitions: cfg.Partitions, ReplicationFactor: cfg.ReplicationFactor}
}

// TopicCreator makes sure the order journal topic exists before the writer
// starts producing to it.
type TopicCreator struct {
	logger    *zap.Logger
	dialer    KafkaDialer
	sleeper   Sleeper
	polls     int
	pollEvery time.Duration
}

func NewTopicCreator(logger *zap.Logger, dialer KafkaDialer, sleeper Sleeper) *TopicCreator {
	return &TopicCreator{
		logger:    logger,
		dialer:    dialer,
		sleeper:   sleeper,
		polls:     10,
		pollEvery: 300 * time.Millisecond,
	}
}

// Ensure creates the topic through the cluster controller unless it already
// exists, then waits until its partitions are visible.
func (tc *TopicCreator) Ensure(ctx context.Context, brokers []string, spec TopicSpec) error {
	conn, err := tc.dialAny(ctx, brokers)
	if err != nil {
		return err
	}
	defer conn.Close()

	if parts, err := conn.ReadPartitions(spec.Name); err == nil && len(parts) > 0 {
		if len(parts) < spec.Partitions {
			tc.logger.Warn("Order topic has fewer partitions than configured",
				zap.String("topic", spec.Name), zap.Int("have", len(parts)), zap.Int("want", spec.Partitions))
		}
		return nil
	}

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}
	controllerAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := tc.dialer.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", controllerAddr, err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.Partitions,
		ReplicationFactor: spec.ReplicationFactor,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", spec.Name, err)
	}
	tc.logger.Info("Order topic created",
		zap.String("topic", spec.Name),
		zap.Int("partitions", spec.Partitions),
		zap.Int("replication_factor", spec.ReplicationFactor))

	return tc.waitForTopic(ctx, conn, spec.Name)
}

func (tc *TopicCreator) dialAny(ctx context.Context, brokers []string) (KafkaConn, error) {
	err := errors.New("no brokers configured")
	for _, addr := range brokers {
		var conn KafkaConn
		conn, err = tc.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		tc.logger.Debug("Broker unreachable", zap.String("broker", addr), zap.Error(err))
	}
	return nil, fmt.Errorf("dial brokers: %w", err)
}

func (tc *TopicCreator) waitForTopic(ctx context.Context, conn KafkaConn, topic string) error {
	for i := 0; i < tc.polls; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		partitions, err := conn.ReadPartitions(topic)
		if err == nil && len(partitions) > 0 {
			tc.logger.Info("Order topic is ready", zap.String("topic", topic), zap.Int("partitions", len(partitions)))
			return nil
		}
		tc.sleeper.Sleep(tc.pollEvery)
	}
	return fmt.Errorf("%w: %s", ErrTopicNotReady, topic)
}

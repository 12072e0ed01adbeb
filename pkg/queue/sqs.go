package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsAPI is the subset of the SQS client the transport uses.
type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, opts ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, opts ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type sqsTransport struct {
	client   sqsAPI
	queueURL string
	wait     int32
	logger   *slog.Logger
}

func newSQSTransport(ctx context.Context, cfg *Config, logger *slog.Logger) (*sqsTransport, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &sqsTransport{
		client:   sqs.NewFromConfig(awsCfg),
		queueURL: cfg.QueueURL,
		wait:     cfg.WaitSeconds,
		logger:   logger.With("transport", "sqs"),
	}, nil
}

func (s *sqsTransport) send(ctx context.Context, t Task) error {
	body, err := encodeTask(t)
	if err != nil {
		return err
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(body),
	})
	return err
}

// receive long-polls the queue. Messages are deleted once their task has
// run, whatever the outcome.
func (s *sqsTransport) receive(ctx context.Context, out chan<- delivery) {
	for ctx.Err() == nil {
		res, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(s.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     s.wait,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("receive failed", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, msg := range res.Messages {
			t, err := decodeTask(aws.ToString(msg.Body))
			if err != nil {
				s.logger.Warn("malformed task dropped", "message_id", aws.ToString(msg.MessageId), "error", err)
				s.delete(context.WithoutCancel(ctx), msg)
				continue
			}

			d := delivery{
				task: t,
				ack:  func(ctx context.Context) { s.delete(ctx, msg) },
			}
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *sqsTransport) delete(ctx context.Context, msg types.Message) {
	_, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		s.logger.Error("delete failed", "message_id", aws.ToString(msg.MessageId), "error", err)
	}
}

func (s *sqsTransport) close() {}

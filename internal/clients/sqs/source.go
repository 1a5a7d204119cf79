package sqs

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/faults"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

// Claimer is the transactional claim the source defers to. Postgres stays
// the source of truth for job state; SQS messages are wake-up signals.
type Claimer interface {
	Claim(ctx context.Context) (*types.Job, error)
}

// Source long-polls an SQS queue and claims from Postgres when a message
// arrives. A message whose claim finds an empty queue is still deleted:
// the job it announced was already claimed by someone else.
type Source struct {
	client   *awssqs.Client
	queueURL string
	inner    Claimer
	log      *logger.Logger
}

func NewSource(ctx context.Context, queueURL string, inner Claimer, logg *logger.Logger) (*Source, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("missing SQS queue URL")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Source{
		client:   awssqs.NewFromConfig(cfg),
		queueURL: queueURL,
		inner:    inner,
		log:      logg.With("service", "SQSSource"),
	}, nil
}

func (s *Source) Claim(ctx context.Context) (*types.Job, error) {
	out, err := s.client.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            &s.queueURL,
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     1,
	})
	if err != nil {
		return nil, faults.Transient(fmt.Errorf("sqs receive: %w", err))
	}
	if len(out.Messages) == 0 {
		return nil, faults.ErrQueueEmpty
	}

	job, claimErr := s.inner.Claim(ctx)
	s.deleteMessage(ctx, out.Messages[0])
	if claimErr != nil {
		return nil, claimErr
	}
	return job, nil
}

func (s *Source) deleteMessage(ctx context.Context, msg sqstypes.Message) {
	if msg.ReceiptHandle == nil {
		return
	}
	if _, err := s.client.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      &s.queueURL,
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		s.log.Warn("SQS delete message failed", "error", err)
	}
}

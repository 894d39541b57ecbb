package notify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dollarport/edu-site/internal/leads"
	"github.com/dollarport/edu-site/pkg/logging"
)

// NotifierQueue is the name the queue notifier reports under.
const NotifierQueue = "queue"

// Reason codes reported when a lead event is not published.
const (
	ReasonQueueMissing       = "queue_missing"
	ReasonQueuePublishFailed = "queue_publish_failed"
)

// SQSAPI is the subset of the SQS client used by QueueNotifier.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// QueueNotifier publishes stored leads to an SQS queue for downstream CRM
// consumers.
type QueueNotifier struct {
	client   SQSAPI
	queueURL string
	logger   *logging.Logger
}

// NewQueueNotifier creates the SQS notifier.
func NewQueueNotifier(client SQSAPI, queueURL string, logger *logging.Logger) *QueueNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &QueueNotifier{client: client, queueURL: strings.TrimSpace(queueURL), logger: logger}
}

// Name implements leads.Notifier.
func (n *QueueNotifier) Name() string { return NotifierQueue }

// Notify implements leads.Notifier.
func (n *QueueNotifier) Notify(ctx context.Context, lead leads.Lead) leads.NotifyResult {
	if n == nil || n.client == nil || n.queueURL == "" {
		return leads.NotifyResult{Sent: false, Reason: ReasonQueueMissing}
	}

	ctx, span := notifyTracer.Start(ctx, "notify.queue")
	defer span.End()
	span.SetAttributes(attribute.String("dollarport.lead.id", lead.LeadID))

	body, err := json.Marshal(lead)
	if err != nil {
		n.logger.Error("lead event encode failed", "lead_id", lead.LeadID, "error", err)
		return leads.NotifyResult{Sent: false, Reason: ReasonQueuePublishFailed}
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"leadType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(lead.LeadType)),
			},
		},
	}
	if strings.HasSuffix(n.queueURL, ".fifo") {
		input.MessageGroupId = aws.String(string(lead.LeadType))
		input.MessageDeduplicationId = aws.String(lead.LeadID)
	}

	out, err := n.client.SendMessage(ctx, input)
	if err != nil {
		span.RecordError(err)
		n.logger.Error("lead event publish failed", "lead_id", lead.LeadID, "error", err)
		return leads.NotifyResult{Sent: false, Reason: ReasonQueuePublishFailed}
	}
	n.logger.Debug("lead event published", "lead_id", lead.LeadID, "message_id", aws.ToString(out.MessageId))
	return leads.NotifyResult{Sent: true}
}

var _ leads.Notifier = (*QueueNotifier)(nil)

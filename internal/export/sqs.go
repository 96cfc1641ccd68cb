package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

// SQSMaxBatch 是 SendMessageBatch 单次允许的最大消息数。
const SQSMaxBatch = 10

// SQSAPI 是 SQSSink 用到的 *sqs.Client 子集。
type SQSAPI interface {
	SendMessageBatch(ctx context.Context, in *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// SQSSink 把每条记录作为一条 JSON 消息投递到队列，供下游下载器消费。
type SQSSink struct {
	API      SQSAPI
	QueueURL string
	RunID    string
	Log      *zap.Logger
}

var _ Exporter = (*SQSSink)(nil)

// NewSQSSink 用现成的 *sqs.Client 构造 sink。
func NewSQSSink(client *sqs.Client, queueURL, runID string, log *zap.Logger) *SQSSink {
	return &SQSSink{API: client, QueueURL: queueURL, RunID: runID, Log: log}
}

// Export 按 SQSMaxBatch 分批发送；任一批出现失败条目即返回错误（已发送的批次不回滚）。
func (s *SQSSink) Export(ctx context.Context, records []domain.ResultRecord) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	sent := 0
	for start := 0; start < len(records); start += SQSMaxBatch {
		end := min(start+SQSMaxBatch, len(records))

		entries := make([]types.SendMessageBatchRequestEntry, 0, end-start)
		for i := start; i < end; i++ {
			body, err := json.Marshal(normalize(records[i]))
			if err != nil {
				return fmt.Errorf("序列化记录 %s 失败：%w", records[i].ID, err)
			}
			e := types.SendMessageBatchRequestEntry{
				Id:          aws.String(strconv.Itoa(i)),
				MessageBody: aws.String(string(body)),
			}
			if s.RunID != "" {
				e.MessageAttributes = map[string]types.MessageAttributeValue{
					"run_id": {DataType: aws.String("String"), StringValue: aws.String(s.RunID)},
				}
			}
			entries = append(entries, e)
		}

		out, err := s.API.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(s.QueueURL),
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("sqs 批量发送失败（已发送 %d 条）：%w", sent, err)
		}
		if out != nil && len(out.Failed) > 0 {
			f := out.Failed[0]
			return fmt.Errorf("sqs 批量发送部分失败：%d 条失败，首条 id=%s code=%s：%s",
				len(out.Failed), aws.ToString(f.Id), aws.ToString(f.Code), aws.ToString(f.Message))
		}
		sent += len(entries)
	}

	log.Info("结果已投递到队列", zap.String("queue", s.QueueURL), zap.Int("records", sent))
	return nil
}

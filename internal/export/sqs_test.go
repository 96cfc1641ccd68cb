package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageBatchInput
	failAt int // 第几次调用返回部分失败；0 表示不失败
}

func (f *fakeSQS) SendMessageBatch(_ context.Context, in *sqs.SendMessageBatchInput, _ ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.failAt == len(f.inputs) {
		return &sqs.SendMessageBatchOutput{
			Failed: []types.BatchResultErrorEntry{{Id: in.Entries[0].Id, Code: aws.String("InternalError"), Message: aws.String("boom")}},
		}, nil
	}
	return &sqs.SendMessageBatchOutput{}, nil
}

func manyRecords(n int) []domain.ResultRecord {
	out := make([]domain.ResultRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.ResultRecord{ID: fmt.Sprintf("%d_p0", i), WorkID: domain.WorkID(fmt.Sprint(i))})
	}
	return out
}

func TestSQSSink_BatchesOfTen(t *testing.T) {
	api := &fakeSQS{}
	s := &SQSSink{API: api, QueueURL: "https://sqs.example/q", RunID: "run-1"}

	require.NoError(t, s.Export(context.Background(), manyRecords(23)))
	require.Len(t, api.inputs, 3)
	assert.Len(t, api.inputs[0].Entries, 10)
	assert.Len(t, api.inputs[1].Entries, 10)
	assert.Len(t, api.inputs[2].Entries, 3)

	e := api.inputs[2].Entries[2]
	assert.Equal(t, "22", aws.ToString(e.Id))
	assert.Equal(t, "https://sqs.example/q", aws.ToString(api.inputs[2].QueueUrl))
	assert.Equal(t, "run-1", aws.ToString(e.MessageAttributes["run_id"].StringValue))

	var r domain.ResultRecord
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(e.MessageBody)), &r))
	assert.Equal(t, "22_p0", r.ID)
}

func TestSQSSink_EmptyDoesNotCall(t *testing.T) {
	api := &fakeSQS{}
	s := &SQSSink{API: api, QueueURL: "q"}

	require.NoError(t, s.Export(context.Background(), nil))
	assert.Empty(t, api.inputs)
}

func TestSQSSink_PartialFailure(t *testing.T) {
	api := &fakeSQS{failAt: 2}
	s := &SQSSink{API: api, QueueURL: "q"}

	err := s.Export(context.Background(), manyRecords(25))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InternalError")
	// 第二批失败后不再继续发送。
	assert.Len(t, api.inputs, 2)
}

// mockSQSMiddleware 在 Finalize 阶段直接返回给定结果，跳过真实网络请求。
func mockSQSMiddleware(output interface{}, err error) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		return stack.Finalize.Add(
			middleware.FinalizeMiddlewareFunc("MockMiddleware", func(context.Context, middleware.FinalizeInput, middleware.FinalizeHandler) (middleware.FinalizeOutput, middleware.Metadata, error) {
				return middleware.FinalizeOutput{Result: output}, middleware.Metadata{}, err
			}),
			middleware.Before,
		)
	}
}

func TestSQSSink_RealClientWithStubbedTransport(t *testing.T) {
	client := sqs.NewFromConfig(aws.Config{Region: "us-east-1"}, func(o *sqs.Options) {
		o.APIOptions = append(o.APIOptions, mockSQSMiddleware(&sqs.SendMessageBatchOutput{}, nil))
	})
	s := NewSQSSink(client, "https://sqs.us-east-1.amazonaws.com/1/q", "run-1", nil)
	assert.NoError(t, s.Export(context.Background(), manyRecords(3)))

	clientErr := sqs.NewFromConfig(aws.Config{Region: "us-east-1"}, func(o *sqs.Options) {
		o.APIOptions = append(o.APIOptions, mockSQSMiddleware(nil, errors.New("aws error")))
	})
	sErr := NewSQSSink(clientErr, "https://sqs.us-east-1.amazonaws.com/1/q", "run-1", nil)
	err := sErr.Export(context.Background(), manyRecords(3))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sqs 批量发送失败")
}

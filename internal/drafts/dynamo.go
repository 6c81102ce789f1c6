package drafts

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
)

type dynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// draftItem is the table row. The table's partition key is request_id.
type draftItem struct {
	RequestID string `dynamodbav:"request_id"`
	Payload   string `dynamodbav:"payload"`
	SavedAt   string `dynamodbav:"saved_at"`
}

// DynamoStore keeps one draft row per service request in a DynamoDB table.
type DynamoStore struct {
	ddb   dynamoAPI
	table string
}

func NewDynamoStore(ddb dynamoAPI, table string) (*DynamoStore, error) {
	if ddb == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dynamodb client is required")
	}
	if table == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dynamodb table is required")
	}
	return &DynamoStore{ddb: ddb, table: table}, nil
}

func (s *DynamoStore) key(requestID string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"request_id": &ddbtypes.AttributeValueMemberS{Value: requestID},
	}
}

func (s *DynamoStore) Save(ctx context.Context, requestID string, draft Draft) error {
	if err := checkRequestID(requestID); err != nil {
		return err
	}
	payload, err := encode(draft)
	if err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(draftItem{
		RequestID: requestID,
		Payload:   string(payload),
		SavedAt:   draft.SavedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal draft item")
	}
	if _, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save draft")
	}
	return nil
}

func (s *DynamoStore) Load(ctx context.Context, requestID string) (Draft, bool, error) {
	if err := checkRequestID(requestID); err != nil {
		return Draft{}, false, err
	}
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(requestID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Draft{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	if len(out.Item) == 0 {
		return Draft{}, false, nil
	}
	var item draftItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return Draft{}, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unmarshal draft item")
	}
	draft, err := decode([]byte(item.Payload))
	if err != nil {
		return Draft{}, false, err
	}
	return draft, true, nil
}

func (s *DynamoStore) Clear(ctx context.Context, requestID string) error {
	if err := checkRequestID(requestID); err != nil {
		return err
	}
	if _, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(requestID),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear draft")
	}
	return nil
}

package drafts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
)

type fakeDynamo struct {
	mu          sync.Mutex
	rows        map[string]map[string]ddbtypes.AttributeValue
	err         error
	lastTable   string
	consistents []bool
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{rows: map[string]map[string]ddbtypes.AttributeValue{}}
}

func partitionKey(key map[string]ddbtypes.AttributeValue) string {
	if v, ok := key["request_id"].(*ddbtypes.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTable = aws.ToString(in.TableName)
	f.rows[partitionKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consistents = append(f.consistents, aws.ToBool(in.ConsistentRead))
	return &dynamodb.GetItemOutput{Item: f.rows[partitionKey(in.Key)]}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, partitionKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoStoreWritesRowPerRequest(t *testing.T) {
	ddb := newFakeDynamo()
	store, err := NewDynamoStore(ddb, "quote_drafts")
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "abc", sampleDraft("abc")))
	assert.Equal(t, "quote_drafts", ddb.lastTable)

	row := ddb.rows["abc"]
	require.NotNil(t, row)
	savedAt, ok := row["saved_at"].(*ddbtypes.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "2026-03-04T10:30:00Z", savedAt.Value)

	_, _, err = store.Load(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, ddb.consistents)
}

func TestDynamoStoreFailuresAreDependencyErrors(t *testing.T) {
	ddb := newFakeDynamo()
	ddb.err = errors.New("ResourceNotFoundException")
	store, err := NewDynamoStore(ddb, "quote_drafts")
	require.NoError(t, err)

	assert.True(t, pkgerrors.Is(store.Save(context.Background(), "abc", Draft{}), pkgerrors.CodeDependency))
	_, _, err = store.Load(context.Background(), "abc")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.Is(store.Clear(context.Background(), "abc"), pkgerrors.CodeDependency))
}

func TestDynamoStoreCorruptPayload(t *testing.T) {
	ddb := newFakeDynamo()
	ddb.rows["abc"] = map[string]ddbtypes.AttributeValue{
		"request_id": &ddbtypes.AttributeValueMemberS{Value: "abc"},
		"payload":    &ddbtypes.AttributeValueMemberS{Value: "{not json"},
	}
	store, err := NewDynamoStore(ddb, "quote_drafts")
	require.NoError(t, err)

	_, ok, err := store.Load(context.Background(), "abc")
	assert.False(t, ok)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInternal))
}

func TestNewDynamoStoreRequiresClientAndTable(t *testing.T) {
	_, err := NewDynamoStore(nil, "quote_drafts")
	assert.Error(t, err)
	_, err = NewDynamoStore(newFakeDynamo(), "")
	assert.Error(t, err)
}

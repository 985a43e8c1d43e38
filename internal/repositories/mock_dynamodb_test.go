package repositories_test

import (
	"context"
	"errors"
	"strconv"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// dynamoMock understands just the expressions DynamoOTPStore sends.
type dynamoMock struct {
	mu    sync.Mutex
	table map[string]map[string]types.AttributeValue
}

func newDynamoMock() *dynamoMock {
	return &dynamoMock{table: map[string]map[string]types.AttributeValue{}}
}

func pkOf(key map[string]types.AttributeValue) (string, error) {
	v, ok := key["pk"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing pk")
	}
	return v.Value, nil
}

func copyItem(in map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *dynamoMock) check(item map[string]types.AttributeValue, cond *string, values map[string]types.AttributeValue) error {
	if cond == nil {
		return nil
	}
	switch *cond {
	case "attribute_exists(pk)":
		if item == nil {
			return &types.ConditionalCheckFailedException{}
		}
	case "#id = :id":
		if item == nil {
			return &types.ConditionalCheckFailedException{}
		}
		have, _ := item["id"].(*types.AttributeValueMemberS)
		want, _ := values[":id"].(*types.AttributeValueMemberS)
		if have == nil || want == nil || have.Value != want.Value {
			return &types.ConditionalCheckFailedException{}
		}
	default:
		return errors.New("unsupported condition " + *cond)
	}
	return nil
}

func (m *dynamoMock) PutItem(_ context.Context, params *dyn.PutItemInput, _ ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := pkOf(params.Item)
	if err != nil {
		return nil, err
	}
	m.table[k] = copyItem(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (m *dynamoMock) GetItem(_ context.Context, params *dyn.GetItemInput, _ ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (m *dynamoMock) UpdateItem(_ context.Context, params *dyn.UpdateItemInput, _ ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	item := m.table[k]
	if err := m.check(item, params.ConditionExpression, params.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errors.New("update of missing item without condition")
	}

	switch *params.UpdateExpression {
	case "ADD attempts :one":
		cur := 0
		if n, ok := item["attempts"].(*types.AttributeValueMemberN); ok {
			cur, _ = strconv.Atoi(n.Value)
		}
		one, _ := strconv.Atoi(params.ExpressionAttributeValues[":one"].(*types.AttributeValueMemberN).Value)
		item["attempts"] = &types.AttributeValueMemberN{Value: strconv.Itoa(cur + one)}
		return &dyn.UpdateItemOutput{Attributes: map[string]types.AttributeValue{"attempts": item["attempts"]}}, nil
	case "SET expired = :t":
		item["expired"] = params.ExpressionAttributeValues[":t"]
		return &dyn.UpdateItemOutput{}, nil
	}
	return nil, errors.New("unsupported update " + *params.UpdateExpression)
}

func (m *dynamoMock) DeleteItem(_ context.Context, params *dyn.DeleteItemInput, _ ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	if err := m.check(m.table[k], params.ConditionExpression, params.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	delete(m.table, k)
	return &dyn.DeleteItemOutput{}, nil
}

package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"footballhub/internal/models"
)

// DynamoDBAPI: подмножество клиента DynamoDB, которое нужно хранилищу.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error)
	PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error)
}

const (
	condExists  = "attribute_exists(pk)"
	condSameID  = "#id = :id"
	exprAddOne  = "ADD attempts :one"
	exprExpired = "SET expired = :t"
)

// dynamoOTPItem — строка таблицы; pk = "<phone>#<source>".
// ttl (epoch seconds) подхватывается встроенным TTL DynamoDB.
type dynamoOTPItem struct {
	PK        string `dynamodbav:"pk"`
	ID        string `dynamodbav:"id"`
	PhoneKey  string `dynamodbav:"phone_key"`
	Source    string `dynamodbav:"source"`
	CodeHash  string `dynamodbav:"code_hash"`
	CreatedAt int64  `dynamodbav:"created_at"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
	Attempts  int    `dynamodbav:"attempts"`
	Expired   bool   `dynamodbav:"expired"`
	TTL       int64  `dynamodbav:"ttl"`
}

type DynamoOTPStore struct {
	client    DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewDynamoOTPStore(client DynamoDBAPI, tableName string, now func() time.Time) *DynamoOTPStore {
	if now == nil {
		now = time.Now
	}
	return &DynamoOTPStore{client: client, tableName: tableName, nowFunc: now}
}

func dynamoPK(phoneKey string, source models.Channel) string {
	return phoneKey + "#" + string(source)
}

func (s *DynamoOTPStore) keyOf(phoneKey string, source models.Channel) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: dynamoPK(phoneKey, source)},
	}
}

func (s *DynamoOTPStore) Put(ctx context.Context, rec *models.OTPRecord) error {
	item, err := attributevalue.MarshalMap(dynamoOTPItem{
		PK:        dynamoPK(rec.PhoneKey, rec.Source),
		ID:        rec.ID,
		PhoneKey:  rec.PhoneKey,
		Source:    string(rec.Source),
		CodeHash:  rec.CodeHash,
		CreatedAt: rec.CreatedAt.UnixNano(),
		ExpiresAt: rec.ExpiresAt.UnixNano(),
		Attempts:  rec.Attempts,
		Expired:   rec.Expired,
		TTL:       rec.ExpiresAt.Add(keyGrace).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{TableName: &s.tableName, Item: item}); err != nil {
		return fmt.Errorf("put otp record: %w", err)
	}
	return nil
}

func (s *DynamoOTPStore) Get(ctx context.Context, phoneKey string) (*models.OTPRecord, error) {
	return getLatest(ctx, s, phoneKey)
}

func (s *DynamoOTPStore) GetBySource(ctx context.Context, phoneKey string, source models.Channel) (*models.OTPRecord, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            s.keyOf(phoneKey, source),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get otp record: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var item dynamoOTPItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal otp record: %w", err)
	}
	rec := &models.OTPRecord{
		ID:        item.ID,
		PhoneKey:  item.PhoneKey,
		Source:    models.Channel(item.Source),
		CodeHash:  item.CodeHash,
		CreatedAt: time.Unix(0, item.CreatedAt).UTC(),
		ExpiresAt: time.Unix(0, item.ExpiresAt).UTC(),
		Attempts:  item.Attempts,
		Expired:   item.Expired,
	}
	if !rec.Expired && markExpired(rec, s.nowFunc()).Expired {
		// флаг производный, ошибку игнорируем
		_, _ = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
			TableName:                &s.tableName,
			Key:                      s.keyOf(phoneKey, source),
			UpdateExpression:         aws.String(exprExpired),
			ConditionExpression:      aws.String(condSameID),
			ExpressionAttributeNames: map[string]string{"#id": "id"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t":  &types.AttributeValueMemberBOOL{Value: true},
				":id": &types.AttributeValueMemberS{Value: rec.ID},
			},
		})
	}
	return rec, nil
}

func (s *DynamoOTPStore) IncrementAttempts(ctx context.Context, phoneKey string, source models.Channel) (int, error) {
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 s.keyOf(phoneKey, source),
		UpdateExpression:    aws.String(exprAddOne),
		ConditionExpression: aws.String(condExists),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	n, ok := out.Attributes["attempts"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("increment otp attempts: no attempts in response")
	}
	attempts, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	return attempts, nil
}

func (s *DynamoOTPStore) Delete(ctx context.Context, phoneKey string, source models.Channel) error {
	if _, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key:       s.keyOf(phoneKey, source),
	}); err != nil {
		return fmt.Errorf("delete otp record: %w", err)
	}
	return nil
}

func (s *DynamoOTPStore) Consume(ctx context.Context, phoneKey string, source models.Channel, recordID string) (bool, error) {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:                &s.tableName,
		Key:                      s.keyOf(phoneKey, source),
		ConditionExpression:      aws.String(condSameID),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: recordID},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("consume otp record: %w", err)
	}
	return true, nil
}

func isConditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

var _ OTPStore = (*DynamoOTPStore)(nil)

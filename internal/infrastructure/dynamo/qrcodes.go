package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qr-codes-api/internal/domain"
)

// QRCodeAPI is the slice of the DynamoDB client the repo uses.
type QRCodeAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// QRCodeRepo provides typed DynamoDB operations for the qr_codes table.
type QRCodeRepo struct {
	client    QRCodeAPI
	tableName string
}

func NewQRCodeRepo(client QRCodeAPI, tableName string) *QRCodeRepo {
	return &QRCodeRepo{client: client, tableName: tableName}
}

func (r *QRCodeRepo) Put(ctx context.Context, q *domain.QRCode) error {
	item, err := attributevalue.MarshalMap(q)
	if err != nil {
		return fmt.Errorf("marshal qr code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *QRCodeRepo) Get(ctx context.Context, qrCodeID string) (*domain.QRCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("qr_code_id", qrCodeID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("qr code not found: %w", domain.ErrNotFound)
	}
	var q domain.QRCode
	if err := attributevalue.UnmarshalMap(out.Item, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// ListByOwner queries the user_id-created_at GSI descending, so the newest
// record comes first. The sort key is the RFC3339 created_at string, which
// orders chronologically only while timestamps carry no sub-second part;
// writers truncate CreatedAt to whole seconds.
func (r *QRCodeRepo) ListByOwner(ctx context.Context, userID string) ([]domain.QRCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-created_at-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	var codes []domain.QRCode
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *QRCodeRepo) UpdateNotes(ctx context.Context, qrCodeID, notes string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldNotes: notes})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("qr_code_id", qrCodeID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// Delete removes a record. Deleting an already-deleted record is a no-op.
func (r *QRCodeRepo) Delete(ctx context.Context, qrCodeID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("qr_code_id", qrCodeID),
	})
	return err
}

// scanAll drains a filtered scan across every page.
func (r *QRCodeRepo) scanAll(ctx context.Context, filter string, values map[string]types.AttributeValue) ([]domain.QRCode, error) {
	var codes []domain.QRCode
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(r.tableName),
			FilterExpression:          aws.String(filter),
			ExpressionAttributeValues: values,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.QRCode
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		codes = append(codes, page...)
		if out.LastEvaluatedKey == nil {
			return codes, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// ListExpiringBefore returns live records that expire before t and have not
// had an expiry reminder sent yet.
func (r *QRCodeRepo) ListExpiringBefore(ctx context.Context, t time.Time) ([]domain.QRCode, error) {
	return r.scanAll(ctx, "expires_at < :t AND reminder_sent = :f", map[string]types.AttributeValue{
		":t": &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Unix(), 10)},
		":f": &types.AttributeValueMemberBOOL{Value: false},
	})
}

func (r *QRCodeRepo) MarkReminded(ctx context.Context, qrCodeID string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{"reminder_sent": true})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("qr_code_id", qrCodeID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// DeleteExpiredBefore removes every record whose expiry is strictly before t
// and returns the deleted records so callers can notify owners. Records
// expiring exactly at t are untouched.
func (r *QRCodeRepo) DeleteExpiredBefore(ctx context.Context, t time.Time) ([]domain.QRCode, error) {
	expired, err := r.scanAll(ctx, "expires_at < :t", map[string]types.AttributeValue{
		":t": &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Unix(), 10)},
	})
	if err != nil {
		return nil, err
	}
	deleted := expired[:0]
	for i := range expired {
		if err := r.Delete(ctx, expired[i].QRCodeID); err != nil {
			slog.Warn("failed to delete expired qr code", "qr_code_id", expired[i].QRCodeID, "err", err)
			continue
		}
		deleted = append(deleted, expired[i])
	}
	return deleted, nil
}

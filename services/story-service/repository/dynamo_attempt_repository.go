package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
)

// DynamoAPI is the part of the DynamoDB client the ledger uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoAttemptRepository keeps the ledger in a table keyed by gateway_order_id.
type DynamoAttemptRepository struct {
	client DynamoAPI
	table  string
}

func NewDynamoAttemptRepository(client DynamoAPI, table string) *DynamoAttemptRepository {
	return &DynamoAttemptRepository{client: client, table: table}
}

type ddbAttempt struct {
	GatewayOrderID string  `dynamodbav:"gateway_order_id"`
	ID             string  `dynamodbav:"id"`
	SessionID      string  `dynamodbav:"session_id,omitempty"`
	Receipt        string  `dynamodbav:"receipt"`
	AmountMinor    int64   `dynamodbav:"amount_minor"`
	Currency       string  `dynamodbav:"currency"`
	PromoCode      string  `dynamodbav:"promo_code,omitempty"`
	Discount       int64   `dynamodbav:"discount"`
	Email          string  `dynamodbav:"email,omitempty"`
	Phone          string  `dynamodbav:"phone,omitempty"`
	Status         string  `dynamodbav:"status"`
	GatewayStatus  string  `dynamodbav:"gateway_status,omitempty"`
	PaymentID      *string `dynamodbav:"payment_id,omitempty"`
	StoryID        string  `dynamodbav:"story_id,omitempty"`
	FailureReason  string  `dynamodbav:"failure_reason,omitempty"`
	CreatedAt      string  `dynamodbav:"created_at"`
	UpdatedAt      string  `dynamodbav:"updated_at"`
}

func toDDBAttempt(a *models.PaymentAttempt) ddbAttempt {
	return ddbAttempt{
		GatewayOrderID: a.GatewayOrderID,
		ID:             a.ID.String(),
		SessionID:      a.SessionID,
		Receipt:        a.Receipt,
		AmountMinor:    a.AmountMinor,
		Currency:       a.Currency,
		PromoCode:      a.PromoCode,
		Discount:       a.Discount,
		Email:          a.Email,
		Phone:          a.Phone,
		Status:         a.Status,
		GatewayStatus:  a.GatewayStatus,
		PaymentID:      a.PaymentID,
		StoryID:        a.StoryID,
		FailureReason:  a.FailureReason,
		CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:      a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (d ddbAttempt) toModel() models.PaymentAttempt {
	a := models.PaymentAttempt{
		GatewayOrderID: d.GatewayOrderID,
		SessionID:      d.SessionID,
		Receipt:        d.Receipt,
		AmountMinor:    d.AmountMinor,
		Currency:       d.Currency,
		PromoCode:      d.PromoCode,
		Discount:       d.Discount,
		Email:          d.Email,
		Phone:          d.Phone,
		Status:         d.Status,
		GatewayStatus:  d.GatewayStatus,
		PaymentID:      d.PaymentID,
		StoryID:        d.StoryID,
		FailureReason:  d.FailureReason,
	}
	a.ID, _ = uuid.Parse(d.ID)
	if t, err := time.Parse(time.RFC3339Nano, d.CreatedAt); err == nil {
		a.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, d.UpdatedAt); err == nil {
		a.UpdatedAt = t
	}
	return a
}

func (r *DynamoAttemptRepository) orderKey(orderID string) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(map[string]string{"gateway_order_id": orderID})
}

func (r *DynamoAttemptRepository) Create(ctx context.Context, attempt *models.PaymentAttempt) error {
	now := time.Now().UTC()
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	attempt.UpdatedAt = now

	item, err := attributevalue.MarshalMap(toDDBAttempt(attempt))
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(gateway_order_id)"),
	})
	if err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

func (r *DynamoAttemptRepository) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentAttempt, error) {
	key, err := r.orderKey(orderID)
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: aws.String(r.table), Key: key})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrAttemptNotFound
	}
	var d ddbAttempt
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, fmt.Errorf("unmarshal attempt: %w", err)
	}
	a := d.toModel()
	return &a, nil
}

func (r *DynamoAttemptRepository) Update(ctx context.Context, orderID string, upd models.AttemptUpdate) error {
	fields := updateFields(upd)
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	exprNames := make(map[string]string, len(names))
	exprVals := make(map[string]types.AttributeValue, len(names))
	for i, name := range names {
		av, err := attributevalue.Marshal(fields[name])
		if err != nil {
			return fmt.Errorf("marshal update value: %w", err)
		}
		sets = append(sets, fmt.Sprintf("#f%d = :v%d", i, i))
		exprNames[fmt.Sprintf("#f%d", i)] = name
		exprVals[fmt.Sprintf(":v%d", i)] = av
	}

	key, err := r.orderKey(orderID)
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       key,
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("attribute_exists(gateway_order_id)"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprVals,
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrAttemptNotFound
	}
	if err != nil {
		return fmt.Errorf("dynamodb UpdateItem failed: %w", err)
	}
	return nil
}

// ListByStatus scans the table; results are ordered newest first.
func (r *DynamoAttemptRepository) ListByStatus(ctx context.Context, status string, limit int) ([]models.PaymentAttempt, error) {
	vals, err := attributevalue.MarshalMap(map[string]string{":s": status})
	if err != nil {
		return nil, fmt.Errorf("marshal filter: %w", err)
	}
	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.table),
		FilterExpression:          aws.String("#s = :s"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: vals,
	}

	var attempts []models.PaymentAttempt
	paginator := dynamodb.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan page failed: %w", err)
		}
		for _, it := range page.Items {
			var d ddbAttempt
			if err := attributevalue.UnmarshalMap(it, &d); err != nil {
				return nil, fmt.Errorf("unmarshal item: %w", err)
			}
			attempts = append(attempts, d.toModel())
		}
	}

	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].CreatedAt.After(attempts[j].CreatedAt)
	})
	if limit > 0 && len(attempts) > limit {
		attempts = attempts[:limit]
	}
	return attempts, nil
}

// PutMany copies attempts as-is using BatchWriteItem in chunks of 25.
func (r *DynamoAttemptRepository) PutMany(ctx context.Context, attempts []models.PaymentAttempt) error {
	const chunkSize = 25
	for i := 0; i < len(attempts); i += chunkSize {
		end := i + chunkSize
		if end > len(attempts) {
			end = len(attempts)
		}
		writeReqs := make([]types.WriteRequest, 0, end-i)
		for j := range attempts[i:end] {
			item, err := attributevalue.MarshalMap(toDDBAttempt(&attempts[i+j]))
			if err != nil {
				return fmt.Errorf("marshal batch item: %w", err)
			}
			writeReqs = append(writeReqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}

		req := &dynamodb.BatchWriteItemInput{RequestItems: map[string][]types.WriteRequest{r.table: writeReqs}}
		for attempt := 0; ; attempt++ {
			out, err := r.client.BatchWriteItem(ctx, req)
			if err != nil {
				return fmt.Errorf("batch write failed: %w", err)
			}
			unprocessed := out.UnprocessedItems[r.table]
			if len(unprocessed) == 0 {
				break
			}
			if attempt >= 2 {
				return fmt.Errorf("batch write had %d unprocessed items after retries", len(unprocessed))
			}
			req.RequestItems[r.table] = unprocessed
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt+1) * 300 * time.Millisecond):
			}
		}
	}
	return nil
}

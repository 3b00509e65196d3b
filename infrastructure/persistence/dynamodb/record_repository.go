package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"senkou-backend/application/ports"
	"senkou-backend/domain/core/entities"
	pkgerrors "senkou-backend/pkg/errors"
)

// DBClient is the subset of *dynamodb.Client the record repository needs.
type DBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// RecordRepository stores records in a single table keyed by recordId.
type RecordRepository struct {
	client    DBClient
	tableName string
	logger    *zap.Logger
}

// NewRecordRepository creates a new DynamoDB record repository
func NewRecordRepository(client DBClient, tableName string, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

var _ ports.RecordStore = (*RecordRepository)(nil)

// Put writes the full record unconditionally
func (r *RecordRepository) Put(ctx context.Context, record entities.Record) error {
	item, err := attributevalue.MarshalMap(record.Item())
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return r.storeError("PutItem", record.RecordID, err)
	}

	r.logger.Debug("Record saved",
		zap.String("recordId", record.RecordID),
		zap.String("ownerId", record.OwnerID),
	)
	return nil
}

// Get reads one record by id
func (r *RecordRepository) Get(ctx context.Context, recordID string) (entities.Record, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       recordKey(recordID),
	})
	if err != nil {
		return entities.Record{}, r.storeError("GetItem", recordID, err)
	}
	if out.Item == nil {
		return entities.Record{}, ports.NewRecordNotFound(recordID)
	}
	record, err := parseItem(out.Item)
	if err != nil {
		return entities.Record{}, ports.NewUnreadableRecord(recordID, err)
	}
	return record, nil
}

// Delete removes the record; a missing key is not an error in DynamoDB.
func (r *RecordRepository) Delete(ctx context.Context, recordID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       recordKey(recordID),
	})
	if err != nil {
		return r.storeError("DeleteItem", recordID, err)
	}

	r.logger.Debug("Record deleted", zap.String("recordId", recordID))
	return nil
}

// PartialUpdate sends instr as an UpdateItem guarded by
// attribute_exists(recordId) and returns the ALL_NEW image.
func (r *RecordRepository) PartialUpdate(ctx context.Context, recordID string, instr ports.UpdateInstruction) (entities.Record, error) {
	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(entities.AttrRecordID))).
		Build()
	if err != nil {
		return entities.Record{}, fmt.Errorf("failed to build condition: %w", err)
	}

	names := make(map[string]string, len(instr.Names)+len(cond.Names()))
	for k, v := range cond.Names() {
		names[k] = v
	}
	for k, v := range instr.Names {
		names[k] = v
	}

	values, err := attributevalue.MarshalMap(instr.Values)
	if err != nil {
		return entities.Record{}, fmt.Errorf("failed to marshal update values: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       recordKey(recordID),
		UpdateExpression:          aws.String(instr.Expression()),
		ConditionExpression:       cond.Condition(),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return entities.Record{}, ports.NewRecordNotFound(recordID)
		}
		return entities.Record{}, r.storeError("UpdateItem", recordID, err)
	}

	r.logger.Debug("Record updated",
		zap.String("recordId", recordID),
		zap.Strings("fields", instr.Fields()),
	)
	record, err := parseItem(out.Attributes)
	if err != nil {
		return entities.Record{}, ports.NewUnreadableRecord(recordID, err)
	}
	return record, nil
}

// ScanAll pages through the whole table. AttributeEquals predicates become a
// FilterExpression; every predicate is also checked on the decoded record.
func (r *RecordRepository) ScanAll(ctx context.Context, pred ports.Predicate) iter.Seq2[entities.Record, error] {
	return func(yield func(entities.Record, error) bool) {
		input := &dynamodb.ScanInput{TableName: aws.String(r.tableName)}
		if eq, ok := pred.(ports.AttributeEquals); ok {
			expr, err := expression.NewBuilder().
				WithFilter(expression.Name(eq.Name).Equal(expression.Value(eq.Value))).
				Build()
			if err != nil {
				yield(entities.Record{}, fmt.Errorf("failed to build filter: %w", err))
				return
			}
			input.FilterExpression = expr.Filter()
			input.ExpressionAttributeNames = expr.Names()
			input.ExpressionAttributeValues = expr.Values()
		}

		paginator := dynamodb.NewScanPaginator(r.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(entities.Record{}, r.storeError("Scan", "", err))
				return
			}

			for _, item := range page.Items {
				record, err := parseItem(item)
				if err != nil {
					r.logger.Warn("Skipping unreadable item", zap.Error(err))
					continue
				}
				if pred != nil && !pred.Matches(record) {
					continue
				}
				if !yield(record, nil) {
					return
				}
			}
		}
	}
}

func (r *RecordRepository) storeError(op, recordID string, err error) error {
	appErr := pkgerrors.NewInternalError(fmt.Sprintf("dynamodb %s failed", op)).WithCause(err)

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("table", r.tableName),
		zap.Error(err),
	}
	if recordID != "" {
		fields = append(fields, zap.String("recordId", recordID))
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		appErr = appErr.WithCode(apiErr.ErrorCode())
		fields = append(fields, zap.String("error_code", apiErr.ErrorCode()))
	}
	r.logger.Error("DynamoDB operation failed", fields...)
	return appErr
}

func recordKey(recordID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		entities.AttrRecordID: &types.AttributeValueMemberS{Value: recordID},
	}
}

func parseItem(item map[string]types.AttributeValue) (entities.Record, error) {
	var flat map[string]any
	if err := attributevalue.UnmarshalMap(item, &flat); err != nil {
		return entities.Record{}, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return entities.FromItem(flat)
}

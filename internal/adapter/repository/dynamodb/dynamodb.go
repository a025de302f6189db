// Package dynamodb stores mappings in a DynamoDB table keyed by "hash".
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const (
	attrHash           = "hash"
	attrOriginalURL    = "original_url"
	attrClickCount     = "click_count"
	attrCreatedAt      = "created_at"
	attrLastAccessedAt = "last_accessed_at"

	// attrLastAccessed is the epoch-seconds attribute of rows written by older deployments.
	attrLastAccessed = "last_accessed"
)

// zonelessLayout matches ISO-8601 timestamps written without a zone, which are read as UTC.
const zonelessLayout = "2006-01-02T15:04:05.999999999"

// API is the subset of the DynamoDB client used by MappingRepository.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// ClientOptions configures NewClient. Empty Endpoint uses the AWS default resolver;
// empty credentials fall back to the default credential chain.
type ClientOptions struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewClient builds a DynamoDB client, pointing it at a local endpoint when one is set.
func NewClient(ctx context.Context, opts ClientOptions) (*dynamodb.Client, error) {
	const op = "adapter.repository.dynamodb.NewClient"

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load sdk config: %w", op, err)
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

type MappingRepository struct {
	api   API
	table string
	now   func() time.Time
}

func NewMappingRepository(api API, table string) *MappingRepository {
	return &MappingRepository{
		api:   api,
		table: table,
		now:   time.Now,
	}
}

func (r *MappingRepository) Get(ctx context.Context, hash string) (*entity.Mapping, error) {
	const op = "adapter.repository.dynamodb.MappingRepository.Get"

	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            hashKey(hash),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get item: %w", op, err)
	}

	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
	}

	m, err := toEntity(out.Item)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to decode item: %w", op, err)
	}

	return m, nil
}

func (r *MappingRepository) PutIfAbsent(ctx context.Context, m *entity.Mapping) (bool, error) {
	const op = "adapter.repository.dynamodb.MappingRepository.PutIfAbsent"

	_, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item: map[string]types.AttributeValue{
			attrHash:        &types.AttributeValueMemberS{Value: m.Hash},
			attrOriginalURL: &types.AttributeValueMemberS{Value: m.OriginalURL},
			attrClickCount:  &types.AttributeValueMemberN{Value: "0"},
			attrCreatedAt:   &types.AttributeValueMemberS{Value: m.CreatedAt.UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression:      aws.String("attribute_not_exists(#h)"),
		ExpressionAttributeNames: map[string]string{"#h": attrHash},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}

		return false, fmt.Errorf("%s: failed to put item: %w", op, err)
	}

	return true, nil
}

func (r *MappingRepository) IncrementClickCount(ctx context.Context, hash string) (int64, error) {
	const op = "adapter.repository.dynamodb.MappingRepository.IncrementClickCount"

	out, err := r.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.table),
		Key:                      hashKey(hash),
		UpdateExpression:         aws.String("ADD #c :inc SET #a = :now"),
		ConditionExpression:      aws.String("attribute_exists(#h)"),
		ExpressionAttributeNames: map[string]string{"#h": attrHash, "#c": attrClickCount, "#a": attrLastAccessedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":inc": &types.AttributeValueMemberN{Value: "1"},
			":now": &types.AttributeValueMemberS{Value: r.now().UTC().Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return 0, fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
		}

		return 0, fmt.Errorf("%s: failed to update item: %w", op, err)
	}

	count, err := numberAttr(out.Attributes, attrClickCount)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to decode click count: %w", op, err)
	}

	return count, nil
}

func hashKey(hash string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrHash: &types.AttributeValueMemberS{Value: hash},
	}
}

func toEntity(item map[string]types.AttributeValue) (*entity.Mapping, error) {
	m := &entity.Mapping{
		Hash:        stringAttr(item, attrHash),
		OriginalURL: stringAttr(item, attrOriginalURL),
	}

	if _, ok := item[attrClickCount]; ok {
		count, err := numberAttr(item, attrClickCount)
		if err != nil {
			return nil, err
		}
		m.ClickCount = count
	}

	createdAt, ok, err := timeAttr(item, attrCreatedAt)
	if err != nil {
		return nil, err
	}
	if ok {
		m.CreatedAt = createdAt
	}

	for _, name := range []string{attrLastAccessedAt, attrLastAccessed} {
		t, ok, err := timeAttr(item, name)
		if err != nil {
			return nil, err
		}
		if ok {
			m.LastAccessedAt = &t
			break
		}
	}

	return m, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// timeAttr reads a timestamp stored either as a string (RFC 3339, or ISO-8601 without zone)
// or as epoch seconds. Reports false when the attribute is absent.
func timeAttr(item map[string]types.AttributeValue, name string) (time.Time, bool, error) {
	switch v := item[name].(type) {
	case *types.AttributeValueMemberS:
		if t, err := time.Parse(time.RFC3339Nano, v.Value); err == nil {
			return t, true, nil
		}

		t, err := time.ParseInLocation(zonelessLayout, v.Value, time.UTC)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid %s: %w", name, err)
		}
		return t, true, nil
	case *types.AttributeValueMemberN:
		sec, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid %s: %w", name, err)
		}
		return time.Unix(sec, 0).UTC(), true, nil
	default:
		return time.Time{}, false, nil
	}
}

func numberAttr(item map[string]types.AttributeValue, name string) (int64, error) {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("missing numeric attribute %s", name)
	}

	n, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}

	return n, nil
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the subset of *dynamodb.Client used by DynamoDBStore.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoDB attribute names of the identities table.
// Partition key "service", sort key "user".
const (
	ddbAttrService    = "service"
	ddbAttrUser       = "user"
	ddbAttrDigest     = "password_digest"
	ddbAttrSalt       = "salt"
	ddbAttrPrivileges = "privileges"
	ddbAttrCreatedAt  = "created_at"
)

// DynamoDBStore keeps the directory in a DynamoDB table.
// Create is a conditional put on attribute_not_exists(#user).
type DynamoDBStore struct {
	client DynamoDBAPI
	table  string
}

// NewDynamoDBStore returns a store over table (default "identities").
func NewDynamoDBStore(client DynamoDBAPI, table string) (*DynamoDBStore, error) {
	if client == nil {
		return nil, fmt.Errorf("identity: nil dynamodb client")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		table = "identities"
	}
	return &DynamoDBStore{client: client, table: table}, nil
}

func (s *DynamoDBStore) Get(ctx context.Context, service, user string) (StoredCredential, error) {
	const op = "identity.Get"

	if err := validKey(op, service, user); err != nil {
		return StoredCredential{}, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            ddbKey(service, user),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return StoredCredential{}, storeErr(op, err)
	}
	if len(out.Item) == 0 {
		return StoredCredential{}, NotFoundError{Op: op, User: user}
	}

	c, err := ddbDecode(out.Item)
	if err != nil {
		return StoredCredential{}, storeErr(op, err)
	}
	return c, nil
}

func (s *DynamoDBStore) Put(ctx context.Context, cred StoredCredential) error {
	const op = "identity.Put"

	if err := cred.Validate(op); err != nil {
		return err
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      ddbEncode(cred),
	}); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func (s *DynamoDBStore) Create(ctx context.Context, cred StoredCredential) error {
	const op = "identity.Create"

	if err := cred.Validate(op); err != nil {
		return err
	}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     ddbEncode(cred),
		ConditionExpression:      aws.String("attribute_not_exists(#user)"),
		ExpressionAttributeNames: map[string]string{"#user": ddbAttrUser},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ConflictError{Op: op, User: cred.User}
		}
		return storeErr(op, err)
	}
	return nil
}

func (s *DynamoDBStore) Delete(ctx context.Context, service, user string) error {
	const op = "identity.Delete"

	if err := validKey(op, service, user); err != nil {
		return err
	}

	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       ddbKey(service, user),
	}); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func ddbKey(service, user string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		ddbAttrService: &types.AttributeValueMemberS{Value: service},
		ddbAttrUser:    &types.AttributeValueMemberS{Value: user},
	}
}

func ddbEncode(c StoredCredential) map[string]types.AttributeValue {
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	// A list keeps stored order; string sets would reorder and reject empties.
	privs := make([]types.AttributeValue, 0, len(c.Privileges))
	for _, p := range c.Privileges {
		privs = append(privs, &types.AttributeValueMemberS{Value: p})
	}

	item := ddbKey(c.Service, c.User)
	item[ddbAttrDigest] = &types.AttributeValueMemberS{Value: c.PasswordDigest}
	item[ddbAttrSalt] = &types.AttributeValueMemberB{Value: c.Salt}
	item[ddbAttrPrivileges] = &types.AttributeValueMemberL{Value: privs}
	item[ddbAttrCreatedAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(created.UTC().Unix(), 10)}
	return item
}

func ddbDecode(item map[string]types.AttributeValue) (StoredCredential, error) {
	var c StoredCredential
	var err error

	if c.Service, err = ddbString(item, ddbAttrService); err != nil {
		return StoredCredential{}, err
	}
	if c.User, err = ddbString(item, ddbAttrUser); err != nil {
		return StoredCredential{}, err
	}
	if c.PasswordDigest, err = ddbString(item, ddbAttrDigest); err != nil {
		return StoredCredential{}, err
	}

	salt, ok := item[ddbAttrSalt].(*types.AttributeValueMemberB)
	if !ok {
		return StoredCredential{}, fmt.Errorf("malformed item: %s", ddbAttrSalt)
	}
	c.Salt = salt.Value

	switch v := item[ddbAttrPrivileges].(type) {
	case *types.AttributeValueMemberL:
		for _, e := range v.Value {
			s, ok := e.(*types.AttributeValueMemberS)
			if !ok {
				return StoredCredential{}, fmt.Errorf("malformed item: %s", ddbAttrPrivileges)
			}
			c.Privileges = append(c.Privileges, s.Value)
		}
	case *types.AttributeValueMemberSS:
		c.Privileges = append(c.Privileges, v.Value...)
	case nil:
	default:
		return StoredCredential{}, fmt.Errorf("malformed item: %s", ddbAttrPrivileges)
	}

	if n, ok := item[ddbAttrCreatedAt].(*types.AttributeValueMemberN); ok {
		secs, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return StoredCredential{}, fmt.Errorf("malformed item: %s", ddbAttrCreatedAt)
		}
		c.CreatedAt = time.Unix(secs, 0).UTC()
	}

	return c, nil
}

func ddbString(item map[string]types.AttributeValue, name string) (string, error) {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("malformed item: %s", name)
	}
	return v.Value, nil
}

package identity

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-process stand-in for the three item calls the store makes.
// It honours the attribute_not_exists condition used by Create.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	fail  error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func fakeKey(k map[string]types.AttributeValue) string {
	s := k[ddbAttrService].(*types.AttributeValueMemberS).Value
	u := k[ddbAttrUser].(*types.AttributeValueMemberS).Value
	return s + "\x00" + u
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	return &dynamodb.GetItemOutput{Item: f.items[fakeKey(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	k := fakeKey(in.Item)
	if in.ConditionExpression != nil {
		if _, exists := f.items[k]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	delete(f.items, fakeKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoDBStore_Conformance(t *testing.T) {
	runStoreConformance(t, func(t *testing.T) Store {
		s, err := NewDynamoDBStore(newFakeDynamo(), "")
		if err != nil {
			t.Fatalf("new store: %v", err)
		}
		return s
	})
}

func TestDynamoDBStore_BackendFailureIsStoreError(t *testing.T) {
	fake := newFakeDynamo()
	fake.fail = errors.New("connection reset")
	s, _ := NewDynamoDBStore(fake, "identities")

	_, err := s.Get(context.Background(), "svc", "alice")
	if !IsUnavailable(err) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	var se StoreError
	if !errors.As(err, &se) || se.Op != "identity.Get" {
		t.Fatalf("expected StoreError with op, got %#v", err)
	}
	if IsNotFound(err) {
		t.Fatalf("backend failure must not look like not found")
	}
}

func TestDynamoDBStore_MalformedItem(t *testing.T) {
	fake := newFakeDynamo()
	fake.items["svc\x00alice"] = ddbKey("svc", "alice") // no digest, no salt
	s, _ := NewDynamoDBStore(fake, "identities")

	if _, err := s.Get(context.Background(), "svc", "alice"); !IsUnavailable(err) {
		t.Fatalf("expected store error for malformed row, got %v", err)
	}
}

func TestDynamoDBStore_ReadsStringSetPrivileges(t *testing.T) {
	fake := newFakeDynamo()
	item := ddbEncode(testCred("svc", "alice", "d"))
	item[ddbAttrPrivileges] = &types.AttributeValueMemberSS{Value: []string{"admin"}}
	fake.items["svc\x00alice"] = item
	s, _ := NewDynamoDBStore(fake, "identities")

	got, err := s.Get(context.Background(), "svc", "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Privileges) != 1 || got.Privileges[0] != "admin" {
		t.Fatalf("unexpected privileges: %v", got.Privileges)
	}
}

// Integration against a real endpoint (DynamoDB Local, LocalStack) is opt-in.
// The table must exist with partition key "service" and sort key "user".
func TestDynamoDBStore_Integration(t *testing.T) {
	endpoint := strings.TrimSpace(os.Getenv("EBAUTH_DYNAMODB_ENDPOINT"))
	if endpoint == "" {
		t.Skip("integration test skipped: EBAUTH_DYNAMODB_ENDPOINT is not set")
	}

	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		t.Fatalf("load aws config: %v", err)
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	table := os.Getenv("EBAUTH_DYNAMODB_IDENTITIES_TABLE")
	s, err := NewDynamoDBStore(client, table)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	// Each subtest gets its own service so rows never collide.
	runStoreConformance(t, func(t *testing.T) Store {
		return &serviceScoped{Store: s, prefix: "it-" + mustNewULIDLike(t) + "-"}
	})
}

// serviceScoped prefixes service names so a shared table behaves as empty.
type serviceScoped struct {
	Store
	prefix string
}

func (s *serviceScoped) Get(ctx context.Context, service, user string) (StoredCredential, error) {
	c, err := s.Store.Get(ctx, s.prefix+service, user)
	c.Service = strings.TrimPrefix(c.Service, s.prefix)
	return c, err
}

func (s *serviceScoped) Put(ctx context.Context, c StoredCredential) error {
	c.Service = s.prefix + c.Service
	return s.Store.Put(ctx, c)
}

func (s *serviceScoped) Create(ctx context.Context, c StoredCredential) error {
	c.Service = s.prefix + c.Service
	return s.Store.Create(ctx, c)
}

func (s *serviceScoped) Delete(ctx context.Context, service, user string) error {
	return s.Store.Delete(ctx, s.prefix+service, user)
}

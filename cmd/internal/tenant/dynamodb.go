package tenant

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ItemGetter is the subset of *dynamodb.Client the loader needs.
type ItemGetter interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// LoadDynamoDB reads the descriptor keyed by service=name from table
// (default "services"). Item shape:
//
//	{service: S, token: {secret: S, timeout: N|S, format?: S}, password: {secret: S}}
func LoadDynamoDB(ctx context.Context, client ItemGetter, table, name string) (Config, error) {
	if strings.TrimSpace(table) == "" {
		table = "services"
	}

	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			"service": &types.AttributeValueMemberS{Value: name},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Config{}, fmt.Errorf("load service descriptor: %w", err)
	}
	if len(out.Item) == 0 {
		return Config{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	tok, ok := out.Item["token"].(*types.AttributeValueMemberM)
	if !ok {
		return Config{}, fmt.Errorf("%w: token attribute missing", ErrInvalid)
	}
	pw, ok := out.Item["password"].(*types.AttributeValueMemberM)
	if !ok {
		return Config{}, fmt.Errorf("%w: password attribute missing", ErrInvalid)
	}

	secs, err := attrInt(tok.Value["timeout"])
	if err != nil {
		return Config{}, err
	}
	timeout, err := timeoutFromSeconds(secs)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Name:           attrString(out.Item["service"]),
		TokenSecret:    []byte(attrString(tok.Value["secret"])),
		TokenTimeout:   timeout,
		PasswordPepper: []byte(attrString(pw.Value["secret"])),
		TokenFormat:    attrString(tok.Value["format"]),
	}.Validate()
}

func attrString(v types.AttributeValue) string {
	if s, ok := v.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

// attrInt accepts numbers stored as N or as numeric strings.
func attrInt(v types.AttributeValue) (int64, error) {
	var raw string
	switch t := v.(type) {
	case *types.AttributeValueMemberN:
		raw = t.Value
	case *types.AttributeValueMemberS:
		raw = t.Value
	default:
		return 0, fmt.Errorf("%w: token.timeout missing", ErrInvalid)
	}
	// DynamoDB numbers may carry a fractional part; timeouts are whole seconds.
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: token.timeout not a number", ErrInvalid)
	}
	return int64(f), nil
}

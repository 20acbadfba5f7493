package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterStoreValue reads a single parameter from AWS SSM Parameter Store
// using the default credential chain.
func ParameterStoreValue(ctx context.Context, parameterName string, decrypt bool) (string, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", parameterName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", nil
	}

	return *result.Parameter.Value, nil
}

// Token returns the bot token, resolved from SSM in "prod" when TokenParam is set.
func (t TelegramConfig) Token(ctx context.Context, env string) string {
	if env != "prod" {
		return t.BotToken
	}
	return paramOr(ctx, t.TokenParam, t.BotToken)
}

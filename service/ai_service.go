package service

import (
	"context"

	"github.com/tieubaoca/docrag-be/types"
)

type AIService interface {
	Chat(ctx context.Context, prompt string, messages []types.Message) (string, error)
	ChatStream(ctx context.Context, prompt string, messages []types.Message, handler types.StreamHandler) error
}

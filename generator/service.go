package generator

import "context"

// Service 抽象远端治理服务，便于替换/Mock。
type Service interface {
	Generate(ctx context.Context, req GenerationRequest) (*GeneratedResult, error)
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, req GenerationRequest) (*GeneratedResult, error)

func (f ServiceFunc) Generate(ctx context.Context, req GenerationRequest) (*GeneratedResult, error) {
	return f(ctx, req)
}

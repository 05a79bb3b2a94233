package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/matchbaan/match-cli/pkg/geocode"
	"github.com/matchbaan/match-cli/pkg/openai"
)

type mockLLM struct {
	mock.Mock
	dims int
}

func (m *mockLLM) Complete(ctx context.Context, req openai.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *mockLLM) Dims() int { return m.dims }

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Geocode(ctx context.Context, addr geocode.AddressInput) (*geocode.Result, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geocode.Result), args.Error(1)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Name() string { return "mock" }

func (m *mockExtractor) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	args := m.Called(ctx, pdfPath)
	return args.String(0), args.Error(1)
}

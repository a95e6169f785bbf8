// README: OCR service: preprocess, transcribe and parse a photo into an order draft.
package ocr

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"dishbee/internal/metrics"
)

type Service struct {
	engine  Engine
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewService(engine Engine, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{engine: engine, log: log, metrics: m}
}

// Process never returns a non-taxonomy error: every failure maps to a *ParseError.
func (s *Service) Process(ctx context.Context, image []byte) (*Parsed, error) {
	prepared, err := Prepare(image)
	if err != nil {
		s.log.Warn("photo preprocessing failed", zap.Error(err))
		s.metrics.OCR(string(CodeOCRFailed))
		return nil, failed(err.Error())
	}
	text, err := s.engine.ExtractText(ctx, prepared, "jpeg")
	if err != nil {
		s.log.Error("ocr engine failed", zap.Error(err))
		s.metrics.OCR(string(CodeOCRFailed))
		return nil, failed(err.Error())
	}
	parsed, err := Parse(text)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			s.log.Info("photo rejected", zap.String("code", string(pe.Code)), zap.String("reason", pe.Reason))
			s.metrics.OCR(string(pe.Code))
			return nil, pe
		}
		s.metrics.OCR(string(CodeOCRFailed))
		return nil, failed(err.Error())
	}
	s.metrics.OCR("OK")
	return parsed, nil
}

package logging

import (
	"go.uber.org/zap"
)

// NewLogger creates a new structured logger
func NewLogger(serviceName string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// WithDeliveryID returns a logger with delivery_id field
func WithDeliveryID(logger *zap.Logger, deliveryID string) *zap.Logger {
	return logger.With(zap.String("delivery_id", deliveryID))
}

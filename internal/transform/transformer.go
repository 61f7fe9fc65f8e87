package transform

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tripmesh/integrations/internal/integration/domain"
)

// Module provides the payload transformer.
var Module = fx.Module("transform",
	fx.Provide(New),
)

// Transformer applies an integration's configured transformations to
// inbound or outbound payloads. Transformation is best-effort: on any
// evaluation error the original payload is returned untouched so the
// surrounding sync, send, receive or webhook operation keeps going.
type Transformer struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Transformer {
	return &Transformer{log: log.Named("transform")}
}

func (t *Transformer) Apply(integration *domain.Integration, payload map[string]any, direction domain.Direction) map[string]any {
	if payload == nil {
		return nil
	}

	if expr := wholePayloadExpr(integration, direction); expr != "" {
		out, err := applyPayloadExpr(expr, payload)
		if err != nil {
			t.log.Warn("payload transformation failed, passing original through",
				zap.Int64("integration_id", integration.ID),
				zap.String("direction", string(direction)),
				zap.Error(err),
			)
			return payload
		}
		return out
	}

	if len(integration.FieldMappings) == 0 {
		return payload
	}

	out := shallowCopy(payload)
	for name, mapping := range integration.FieldMappings {
		value, ok := payload[mapping.SourceField]
		if !ok {
			continue
		}
		if mapping.Transform != "" {
			transformed, err := applyFieldExpr(mapping.Transform, value)
			if err != nil {
				t.log.Warn("field transformation failed, passing original through",
					zap.Int64("integration_id", integration.ID),
					zap.String("mapping", name),
					zap.Error(err),
				)
				return payload
			}
			value = transformed
		}
		out[mapping.TargetField] = value
	}
	return out
}

func wholePayloadExpr(integration *domain.Integration, direction domain.Direction) string {
	if direction == domain.DirectionInbound {
		return integration.ResponseTransform
	}
	return integration.RequestTransform
}

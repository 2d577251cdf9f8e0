package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
)

func TestBuild(t *testing.T) {
	got, err := Build(StageFraudDetect, "go", 42)
	require.NoError(t, err)
	assert.Equal(t, "FINX/CAPITALMARKETS/TRANSACTION/FRAUD_DETECT/go/42", got)

	got, err = Build(StageIngress, "go", 1)
	require.NoError(t, err)
	assert.Equal(t, "FINX/CAPITALMARKETS/TRANSACTION/go/1", got)
}

func TestBuildDeterministic(t *testing.T) {
	a, err := Build(StageSettle, "go", 7)
	require.NoError(t, err)
	b, err := Build(StageSettle, "go", 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPattern(t *testing.T) {
	got, err := Pattern(StageSettle, "go")
	require.NoError(t, err)
	assert.Equal(t, "FINX/CAPITALMARKETS/TRANSACTION/SETTLE/go/>", got)
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		concrete string
		want     bool
	}{
		{"curinga casa um segmento extra", "A/B/>", "A/B/C", true},
		{"curinga casa varios segmentos", "A/B/>", "A/B/C/1", true},
		{"curinga nao casa o proprio prefixo", "A/B/>", "A/B", false},
		{"prefixo divergente", "A/B/>", "A/C/1", false},
		{"exato casa identico", "A/B/C", "A/B/C", true},
		{"exato nao casa sufixo extra", "A/B/C", "A/B/C/D", false},
		{"exato nao casa prefixo", "A/B/C", "A/B", false},
		{"segmento nao e prefixo de segmento", "A/B/>", "A/BB/C", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.concrete))
		})
	}
}

func TestMatchStagePatterns(t *testing.T) {
	settle, err := Pattern(StageSettle, "go")
	require.NoError(t, err)

	concrete, err := Build(StageSettle, "go", 12)
	require.NoError(t, err)
	assert.True(t, Match(settle, concrete))

	// O pattern de SETTLE não pode capturar o tráfego de compliance.
	alert, err := Build(StageComplianceAlert, "go", 12)
	require.NoError(t, err)
	assert.False(t, Match(settle, alert))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("FINX/CAPITALMARKETS/TRANSACTION/go/1"))

	err := Validate("FINX//TRANSACTION")
	assert.ErrorIs(t, err, domain.ErrMalformedTopic)

	err = Validate("FINX/CAPITAL MARKETS/TX")
	assert.ErrorIs(t, err, domain.ErrMalformedTopic)

	// Curinga não é aceito em tópico concreto de publicação.
	err = Validate("FINX/CAPITALMARKETS/>")
	assert.ErrorIs(t, err, domain.ErrMalformedTopic)
}

func TestValidatePattern(t *testing.T) {
	assert.NoError(t, ValidatePattern("FINX/CAPITALMARKETS/TRANSACTION/go/>"))

	// Curinga só pode ser o último segmento.
	err := ValidatePattern("FINX/>/TRANSACTION")
	assert.ErrorIs(t, err, domain.ErrMalformedTopic)
}
